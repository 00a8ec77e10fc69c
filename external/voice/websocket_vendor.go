package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/foxseedlab/mensetsu/internal/voice"
	"github.com/gorilla/websocket"
)

const (
	frameStart = "start"
	frameStop  = "stop"
	frameMute  = "mute"

	writeTimeout = 5 * time.Second
)

type outboundFrame struct {
	Type           string                 `json:"type"`
	Assistant      *voice.AssistantConfig `json:"assistant,omitempty"`
	VariableValues *voice.VariableValues  `json:"variableValues,omitempty"`
	Muted          *bool                  `json:"muted,omitempty"`
}

type inboundFrame struct {
	Event   voice.EventName      `json:"event"`
	Message *voice.VendorMessage `json:"message,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// WebsocketVendor speaks a JSON frame protocol to a realtime voice relay.
// Every listener runs on the single read goroutine of the open call.
type WebsocketVendor struct {
	url    string
	apiKey string
	dialer *websocket.Dialer

	mu        sync.Mutex
	listeners map[voice.EventName][]voice.Listener
	conn      *websocket.Conn
	closing   bool

	writeMu sync.Mutex
}

func NewWebsocketVendor(url, apiKey string) *WebsocketVendor {
	return &WebsocketVendor{
		url:       url,
		apiKey:    apiKey,
		dialer:    websocket.DefaultDialer,
		listeners: make(map[voice.EventName][]voice.Listener),
	}
}

func (v *WebsocketVendor) On(name voice.EventName, l voice.Listener) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.listeners[name] = append(v.listeners[name], l)
}

func (v *WebsocketVendor) Off(name voice.EventName, l voice.Listener) {
	v.mu.Lock()
	defer v.mu.Unlock()
	list := v.listeners[name]
	for i, existing := range list {
		if existing == l {
			v.listeners[name] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

func (v *WebsocketVendor) Start(ctx context.Context, assistant voice.AssistantConfig, opts voice.StartOptions) error {
	if v.url == "" {
		return errors.New("voice vendor url is not configured")
	}
	v.mu.Lock()
	if v.conn != nil {
		v.mu.Unlock()
		return errors.New("voice call already open")
	}
	v.mu.Unlock()

	header := http.Header{}
	if v.apiKey != "" {
		header.Set("Authorization", "Bearer "+v.apiKey)
	}
	conn, resp, err := v.dialer.DialContext(ctx, v.url, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial voice vendor: status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("dial voice vendor: %w", err)
	}

	if err := v.write(conn, outboundFrame{Type: frameStart, Assistant: &assistant, VariableValues: &opts.VariableValues}); err != nil {
		_ = conn.Close()
		return fmt.Errorf("send start frame: %w", err)
	}

	v.mu.Lock()
	v.conn = conn
	v.closing = false
	v.mu.Unlock()

	go v.readLoop(conn)
	return nil
}

// Stop asks the relay to hang up and closes the socket. It is a no-op when
// no call is open.
func (v *WebsocketVendor) Stop(_ context.Context) error {
	v.mu.Lock()
	conn := v.conn
	v.conn = nil
	v.closing = true
	v.mu.Unlock()
	if conn == nil {
		return nil
	}

	writeErr := v.write(conn, outboundFrame{Type: frameStop})
	v.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "call ended"),
		time.Now().Add(writeTimeout))
	v.writeMu.Unlock()
	closeErr := conn.Close()
	if writeErr != nil {
		return fmt.Errorf("send stop frame: %w", writeErr)
	}
	return closeErr
}

func (v *WebsocketVendor) SetMuted(muted bool) error {
	v.mu.Lock()
	conn := v.conn
	v.mu.Unlock()
	if conn == nil {
		return nil
	}
	return v.write(conn, outboundFrame{Type: frameMute, Muted: &muted})
}

func (v *WebsocketVendor) write(conn *websocket.Conn, frame outboundFrame) error {
	v.writeMu.Lock()
	defer v.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(frame)
}

func (v *WebsocketVendor) readLoop(conn *websocket.Conn) {
	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			v.handleReadError(conn, err)
			return
		}
		ev, ok := toVendorEvent(frame)
		if !ok {
			slog.Warn("dropping unknown voice vendor frame", "event", string(frame.Event))
			continue
		}
		v.dispatch(ev)
	}
}

func (v *WebsocketVendor) handleReadError(conn *websocket.Conn, err error) {
	v.mu.Lock()
	intentional := v.closing || v.conn != conn
	if v.conn == conn {
		v.conn = nil
	}
	v.mu.Unlock()
	_ = conn.Close()
	if intentional {
		return
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		slog.Info("voice vendor closed the call")
		v.dispatch(voice.VendorEvent{Name: voice.EventCallEnd})
		return
	}
	slog.Error("voice vendor connection lost", "error", err)
	v.dispatch(voice.VendorEvent{Name: voice.EventError, Err: fmt.Errorf("connection lost: %w", err)})
}

func (v *WebsocketVendor) dispatch(ev voice.VendorEvent) {
	v.mu.Lock()
	listeners := append([]voice.Listener(nil), v.listeners[ev.Name]...)
	v.mu.Unlock()
	for _, l := range listeners {
		l.Handle(ev)
	}
}

func toVendorEvent(frame inboundFrame) (voice.VendorEvent, bool) {
	switch frame.Event {
	case voice.EventCallStart, voice.EventCallEnd, voice.EventSpeechStart, voice.EventSpeechEnd:
		return voice.VendorEvent{Name: frame.Event}, true
	case voice.EventMessage:
		return voice.VendorEvent{Name: frame.Event, Message: frame.Message}, true
	case voice.EventError:
		msg := frame.Error
		if msg == "" {
			msg = "unspecified vendor error"
		}
		return voice.VendorEvent{Name: frame.Event, Err: errors.New(msg)}, true
	default:
		return voice.VendorEvent{}, false
	}
}
