package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/talkinator/internal/domain"
	"github.com/seu-repo/talkinator/internal/ports"
)

// CallMonitor exposes the live state of the call server
type CallMonitor interface {
	Status() domain.AdmissionStatus
	Live() []domain.CallEvent
}

type CallHandler struct {
	monitor CallMonitor
	history ports.CallHistory
	log     *zap.Logger
}

func NewCallHandler(monitor CallMonitor, history ports.CallHistory, log *zap.Logger) *CallHandler {
	return &CallHandler{
		monitor: monitor,
		history: history,
		log:     log,
	}
}

type activeCallsResponse struct {
	Active int                `json:"active"`
	Max    int                `json:"max"`
	Calls  []domain.CallEvent `json:"calls"`
}

// Active lists the calls in progress and the admission capacity
func (h *CallHandler) Active(c *fiber.Ctx) error {
	status := h.monitor.Status()
	return c.JSON(activeCallsResponse{
		Active: status.Active,
		Max:    status.Max,
		Calls:  h.monitor.Live(),
	})
}

// Get returns the recorded summary of a finished call
func (h *CallHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return fiber.NewError(fiber.StatusBadRequest, "call id is required")
	}

	record, err := h.history.Get(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "call not found")
		}
		h.log.Error("Failed to load call record", zap.String("call_id", id), zap.Error(err))
		return err
	}
	return c.JSON(record)
}
