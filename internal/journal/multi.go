package journal

import (
	"errors"

	"cryptobot/internal/model"
)

// Multi fans one fill out to several recorders (e.g. CSV for export plus
// SQLite for resume). All recorders are attempted; errors are joined.
type Multi []interface {
	Append(fill model.Fill) error
}

// Append writes the fill to every recorder.
func (m Multi) Append(fill model.Fill) error {
	var errs []error
	for _, r := range m {
		if err := r.Append(fill); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
