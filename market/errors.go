package market

import (
	"fmt"
	"time"
)

// MissingPriceError reports an order or fill referencing an instrument the
// current batch carries no price for. It indicates a data/strategy mismatch
// and should abort the run rather than be skipped.
type MissingPriceError struct {
	Instrument string
	Time       time.Time
}

func (e *MissingPriceError) Error() string {
	return fmt.Sprintf("no price for %q at %s", e.Instrument, e.Time.Format(time.RFC3339))
}
