package messaging

import (
	"context"

	"github.com/FocuswithJustin/BibleSpeak/core/dictionary"
	"github.com/FocuswithJustin/BibleSpeak/core/errors"
	"github.com/FocuswithJustin/BibleSpeak/internal/logging"
)

// Request is one popup-to-page message.
type Request struct {
	// ID correlates a response on multiplexed transports.
	ID     uint64  `json:"id,omitempty"`
	Action Command `json:"action"`
	// Names is the selection for EnableSelected and UpdateSelected.
	Names []string `json:"names,omitempty"`
	// Enabled is the new flag for ToggleExtension; nil flips it.
	Enabled *bool `json:"enabled,omitempty"`
}

// Response is the page's answer. Fields not relevant to the command are
// left empty.
type Response struct {
	ID                 uint64                      `json:"id,omitempty"`
	Names              []string                    `json:"names,omitempty"`
	EnabledNames       []string                    `json:"enabledNames,omitempty"`
	Data               map[string]dictionary.Entry `json:"data,omitempty"`
	IsExtensionEnabled bool                        `json:"isExtensionEnabled"`
	Error              string                      `json:"error,omitempty"`
}

// Responder answers requests for one page.
type Responder interface {
	Handle(ctx context.Context, req Request) (Response, error)
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(ctx context.Context, req Request) (Response, error)

// Handle calls f.
func (f ResponderFunc) Handle(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// Sender delivers a request to a page and waits for the answer.
type Sender interface {
	Send(ctx context.Context, req Request) (Response, error)
}

// Local delivers requests in-process. A nil Responder behaves like a page
// that has not loaded.
type Local struct {
	Responder Responder
}

// Send implements Sender.
func (l Local) Send(ctx context.Context, req Request) (Response, error) {
	if l.Responder == nil {
		return Response{}, errors.ErrNoResponder
	}
	resp, err := l.Responder.Handle(ctx, req)
	resp.ID = req.ID
	return resp, err
}

// Fetch sends req and reports whether the page answered. A missing
// responder is logged and yields the zero Response with ok false; other
// errors are returned.
func Fetch(ctx context.Context, s Sender, req Request) (resp Response, ok bool, err error) {
	resp, err = s.Send(ctx, req)
	if errors.Is(err, errors.ErrNoResponder) {
		logging.DebugContext(ctx, "no page responder", "action", req.Action.String())
		return Response{}, false, nil
	}
	if err != nil {
		return Response{}, false, err
	}
	return resp, true, nil
}
