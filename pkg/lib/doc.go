// Package lib provides a Go SDK to upload documents concurrently with cupload.
//
// The SDK runs the same upload orchestrator used by the cupload CLI inside
// the application: every submitted file becomes an independent upload task
// with its own progress, and each task reports its outcome exactly once.
//
// # Quick Start
//
//	client, err := lib.New(ctx, lib.Config{
//	    Uploader: lib.UploaderHTTP,
//	    APIURL:   "http://localhost:8000",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	sub, err := client.SubmitBatch(ctx, []lib.File{lib.FileFromPath("contract.pdf")})
//	for _, r := range sub.Rejections {
//	    fmt.Printf("%s rejected: %s\n", r.FileName, r.Reason)
//	}
//
// # Observing progress
//
// Register an observer to receive the state of every task after each change.
// Observers are called serially and must not block:
//
//	unsubscribe := client.Observe(func(b lib.Batch) {
//	    for _, t := range b.Tasks {
//	        fmt.Printf("%s %.0f%% %s\n", t.FileName, t.Progress, t.Status)
//	    }
//	})
//	defer unsubscribe()
//
// # Notifications
//
// Set [Config].OnNotification to receive the outcome of each task. Outcomes
// are also recorded in the upload history, see [Client.History].
//
// # Error Handling
//
// All methods return errors that can be inspected with [errors.Is]:
//
//   - [ErrNotFound]: Resource does not exist.
//   - [ErrNotValid]: Invalid input or configuration.
//   - [ErrClosed]: The client was closed.
//
// # Testing
//
// Use [UploaderFake] and an in-memory history to write tests without a
// backend:
//
//	client, _ := lib.New(ctx, lib.Config{
//	    Uploader:        lib.UploaderFake,
//	    InMemoryHistory: true,
//	})
//	defer client.Close()
//
// # Thread Safety
//
// A [Client] is safe for concurrent use from multiple goroutines.
package lib
