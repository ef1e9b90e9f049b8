package watch

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	cerrors "github.com/conduit-lang/metacore/internal/compiler/errors"
)

// Event types sent to clients.
const (
	EventCompiling = "compiling"
	EventSuccess   = "success"
	EventError     = "error"
)

// Event describes a compile to the connected clients.
type Event struct {
	Type      string       `json:"type"`
	Timestamp int64        `json:"timestamp"`
	Files     []string     `json:"files,omitempty"`
	Errors    []*ErrorInfo `json:"errors,omitempty"`
	Duration  float64      `json:"duration,omitempty"` // milliseconds
	Sources   int          `json:"sources,omitempty"`
}

// ErrorInfo holds detailed error information
type ErrorInfo struct {
	Message  string `json:"message"`
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
	Code     string `json:"code,omitempty"`
	Category string `json:"category,omitempty"`
	Element  string `json:"element,omitempty"`
}

// ErrorInfos converts a compile error into the form sent to clients.
// Errors other than compilation errors become a single message.
func ErrorInfos(err error) []*ErrorInfo {
	if err == nil {
		return nil
	}
	var list cerrors.ErrorList
	if !errors.As(err, &list) {
		if ce, ok := cerrors.AsCompilationError(err); ok {
			list = cerrors.ErrorList{ce}
		}
	}
	if len(list) == 0 {
		return []*ErrorInfo{{Message: err.Error()}}
	}
	infos := make([]*ErrorInfo, 0, len(list))
	for _, ce := range list {
		info := &ErrorInfo{
			Message:  ce.Message,
			Code:     string(ce.Code),
			Category: string(ce.Category),
			Element:  ce.Element,
		}
		if ce.Source != nil {
			info.File = ce.Source.SourceID
			info.Line = ce.Source.Line
			info.Column = ce.Source.Column
		}
		infos = append(infos, info)
	}
	return infos
}

// EventServer broadcasts compile events to WebSocket clients
type EventServer struct {
	connections map[*websocket.Conn]bool
	broadcast   chan *Event
	register    chan *websocket.Conn
	unregister  chan *websocket.Conn
	done        chan struct{}
	closeOnce   sync.Once
	mutex       sync.RWMutex
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// NewEventServer creates an event server and starts its broadcast loop.
func NewEventServer(logger *zap.Logger) *EventServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	es := &EventServer{
		connections: make(map[*websocket.Conn]bool),
		broadcast:   make(chan *Event, 256),
		register:    make(chan *websocket.Conn),
		unregister:  make(chan *websocket.Conn),
		done:        make(chan struct{}),
		logger:      logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return strings.HasPrefix(origin, "http://localhost") ||
					strings.HasPrefix(origin, "https://localhost") ||
					strings.HasPrefix(origin, "http://127.0.0.1") ||
					strings.HasPrefix(origin, "https://127.0.0.1")
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	go es.run()

	return es
}

func (es *EventServer) run() {
	for {
		select {
		case <-es.done:
			return

		case conn := <-es.register:
			es.mutex.Lock()
			es.connections[conn] = true
			n := len(es.connections)
			es.mutex.Unlock()
			es.logger.Debug("client connected", zap.Int("clients", n))

		case conn := <-es.unregister:
			es.mutex.Lock()
			if _, ok := es.connections[conn]; ok {
				delete(es.connections, conn)
				conn.Close()
			}
			n := len(es.connections)
			es.mutex.Unlock()
			es.logger.Debug("client disconnected", zap.Int("clients", n))

		case event := <-es.broadcast:
			es.sendToAll(event)
		}
	}
}

func (es *EventServer) sendToAll(event *Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		es.logger.Error("failed to marshal event", zap.Error(err))
		return
	}

	es.mutex.RLock()
	var failed []*websocket.Conn
	for conn := range es.connections {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			es.logger.Debug("failed to send event", zap.Error(err))
			failed = append(failed, conn)
		}
	}
	es.mutex.RUnlock()

	if len(failed) > 0 {
		es.mutex.Lock()
		for _, conn := range failed {
			if _, ok := es.connections[conn]; ok {
				conn.Close()
				delete(es.connections, conn)
			}
		}
		es.mutex.Unlock()
	}
}

// HandleWebSocket upgrades HTTP connections to WebSocket
func (es *EventServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := es.upgrader.Upgrade(w, r, nil)
	if err != nil {
		es.logger.Debug("failed to upgrade connection", zap.Error(err))
		return
	}

	select {
	case es.register <- conn:
	case <-es.done:
		conn.Close()
		return
	}

	go es.readMessages(conn)
}

// readMessages drains the client until it goes away
func (es *EventServer) readMessages(conn *websocket.Conn) {
	defer func() {
		select {
		case es.unregister <- conn:
		case <-es.done:
		}
	}()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				es.logger.Debug("websocket error", zap.Error(err))
			}
			return
		}
	}
}

// Publish queues an event for every client. Events are dropped when the
// queue is full or the server is closed.
func (es *EventServer) Publish(event *Event) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	select {
	case <-es.done:
	case es.broadcast <- event:
	default:
		es.logger.Warn("event queue full, dropping event", zap.String("type", event.Type))
	}
}

// NotifyCompiling sends a "compiling" event to clients
func (es *EventServer) NotifyCompiling(files []string) {
	es.Publish(&Event{Type: EventCompiling, Files: files})
}

// NotifyResult sends a "success" or "error" event for a finished compile.
func (es *EventServer) NotifyResult(duration time.Duration, sources int, err error) {
	event := &Event{Type: EventSuccess, Duration: float64(duration.Milliseconds()), Sources: sources}
	if err != nil {
		event.Type = EventError
		event.Errors = ErrorInfos(err)
	}
	es.Publish(event)
}

// ConnectionCount returns the number of active connections
func (es *EventServer) ConnectionCount() int {
	es.mutex.RLock()
	defer es.mutex.RUnlock()
	return len(es.connections)
}

// Close closes all connections and stops the server
func (es *EventServer) Close() {
	es.closeOnce.Do(func() { close(es.done) })

	es.mutex.Lock()
	defer es.mutex.Unlock()

	for conn := range es.connections {
		conn.Close()
	}
	es.connections = make(map[*websocket.Conn]bool)
}
