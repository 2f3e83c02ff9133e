// Package printer renders upload tasks, rejections and history for humans
// (table) or machines (JSON).
package printer

import "github.com/slok/cupload/internal/model"

// Printer knows how to print upload information in different formats.
type Printer interface {
	PrintBatch(b model.Batch) error
	PrintRejections(rejections []model.Rejection) error
	PrintHistory(notifications []model.Notification) error
	PrintPolicy(p model.ValidationPolicy) error
	PrintMessage(msg string) error
}
