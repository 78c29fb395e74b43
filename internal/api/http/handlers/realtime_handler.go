package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/spec-kit/guest-services/internal/events"
	"github.com/spec-kit/guest-services/internal/service"
)

// RealtimeHandler streams broker events to browsers as server-sent events.
type RealtimeHandler struct {
	realtime  *service.RealtimeService
	heartbeat time.Duration
	logger    *zap.Logger
}

// NewRealtimeHandler constructs handler.
func NewRealtimeHandler(realtime *service.RealtimeService, heartbeat time.Duration, logger *zap.Logger) *RealtimeHandler {
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RealtimeHandler{realtime: realtime, heartbeat: heartbeat, logger: logger}
}

// Stream GET /v1/realtime/stream?hotelId=&stayId=&ticketId=&departments=a,b.
// The subscription is released when the client goes away or the broker
// shuts down.
func (h *RealtimeHandler) Stream(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	params := service.SubscribeParams{
		HotelID:     c.Query("hotelId"),
		StayID:      optionalQuery(c, "stayId"),
		TicketID:    optionalQuery(c, "ticketId"),
		Departments: splitList(c.Query("departments")),
	}
	if params.HotelID == "" {
		params.HotelID = principal.HotelIDValue()
	}
	sub, unsubscribe, err := h.realtime.Subscribe(principal, params)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	heartbeat, logger := h.heartbeat, h.logger
	logger.Debug("realtime stream opened", zap.String("hotel_id", sub.Filter().HotelID))
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()
		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		if _, err := io.WriteString(w, "retry: 3000\n: connected\n\n"); err != nil {
			return
		}
		if err := w.Flush(); err != nil {
			return
		}
		for {
			select {
			case ev, ok := <-sub.Events():
				if !ok {
					return
				}
				if err := WriteSSE(w, ev); err != nil {
					logger.Debug("realtime stream write failed", zap.Error(err))
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			case <-sub.Done():
				return
			case <-ticker.C:
				if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}

// WriteSSE frames ev as one server-sent event named after its type.
func WriteSSE(w io.Writer, ev events.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		return nil
	}
	return &val
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
