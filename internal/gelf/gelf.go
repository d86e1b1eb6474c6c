package gelf

import (
	"encoding/json"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Writer sends GELF messages over UDP. It implements io.Writer for
// zerolog's JSON output: each Write is one event.
type Writer struct {
	conn     net.Conn
	hostname string
	service  string
}

// New creates a GELF UDP writer connected to addr (e.g. "172.17.0.1:12201").
func New(addr, service string) (*Writer, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, err
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = service + "-server"
	}

	return &Writer{conn: conn, hostname: hostname, service: service}, nil
}

// Write implements io.Writer. Events that are not JSON objects are sent
// verbatim as the short message.
func (w *Writer) Write(p []byte) (int, error) {
	msg := map[string]any{
		"version":   "1.1",
		"host":      w.hostname,
		"timestamp": float64(time.Now().UnixNano()) / 1e9,
		"level":     6,
		"_service":  w.service,
	}

	var event map[string]any
	if err := json.Unmarshal(p, &event); err != nil {
		msg["short_message"] = string(p)
	} else {
		for k, v := range event {
			switch k {
			case zerolog.MessageFieldName:
				msg["short_message"] = v
			case zerolog.LevelFieldName:
				lvl, _ := v.(string)
				msg["level"] = severity(lvl)
			case zerolog.TimestampFieldName:
			case "id":
				// GELF reserves _id.
				msg["_event_id"] = v
			default:
				msg["_"+k] = v
			}
		}
		if _, ok := msg["short_message"]; !ok {
			msg["short_message"] = "-"
		}
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return len(p), nil // don't fail the log call
	}

	// Fire-and-forget
	w.conn.Write(payload)
	return len(p), nil
}

func (w *Writer) Close() error { return w.conn.Close() }

// severity maps a zerolog level name to a syslog severity.
func severity(level string) int {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return 6
	}
	switch lvl {
	case zerolog.PanicLevel:
		return 1
	case zerolog.FatalLevel:
		return 2
	case zerolog.ErrorLevel:
		return 3
	case zerolog.WarnLevel:
		return 4
	case zerolog.InfoLevel:
		return 6
	default:
		return 7
	}
}
