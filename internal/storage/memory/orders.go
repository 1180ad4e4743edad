package memory

import (
	"context"
	"sync"

	"github.com/cimillas/booking-core/internal/domain"
)

// OrderSink collects confirmed order lines in memory, standing in for the
// external order/cart service.
type OrderSink struct {
	mu    sync.Mutex
	lines []domain.OrderLine
}

func NewOrderSink() *OrderSink {
	return &OrderSink{}
}

func (s *OrderSink) PublishOrder(_ context.Context, line domain.OrderLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
	return nil
}

func (s *OrderSink) Lines() []domain.OrderLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.OrderLine(nil), s.lines...)
}
