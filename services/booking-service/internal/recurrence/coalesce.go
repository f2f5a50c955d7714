package recurrence

import (
	"context"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/period"
	"golang.org/x/sync/singleflight"
)

type coalescingSource struct {
	src   ReservationSource
	group singleflight.Group
}

// NewCoalescingSource shares one in-flight lookup between concurrent callers
// asking for the same room and date. Callers must not modify the returned slice.
func NewCoalescingSource(src ReservationSource) ReservationSource {
	return &coalescingSource{src: src}
}

func (c *coalescingSource) ListReservations(ctx context.Context, roomID int, date time.Time) ([]period.Interval, error) {
	key := fmt.Sprintf("%d/%s", roomID, date.Format(period.DateLayout))
	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.src.ListReservations(context.WithoutCancel(ctx), roomID, date)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]period.Interval), nil
	}
}
