// Package oxidbtest runs an in-process oxidb-server stand-in for tests. It
// speaks the length-prefixed JSON protocol and implements the subset of
// commands the oxidb client exposes, keeping documents in memory.
package oxidbtest

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type Server struct {
	ln net.Listener

	mu      sync.Mutex
	colls   map[string][]map[string]any
	nextID  map[string]int
	unique  map[string][]string
	indexes map[string][]string
	fail    map[string]string
	delay   map[string]time.Duration
	conns   map[net.Conn]struct{}
	wg      sync.WaitGroup
}

// NewServer starts a server on a random loopback port.
func NewServer() (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	s := &Server{
		ln:      ln,
		colls:   map[string][]map[string]any{},
		nextID:  map[string]int{},
		unique:  map[string][]string{},
		indexes: map[string][]string{},
		fail:    map[string]string{},
		delay:   map[string]time.Duration{},
		conns:   map[net.Conn]struct{}{},
	}
	s.wg.Add(1)
	go s.serve()
	return s, nil
}

func (s *Server) Host() string { return "127.0.0.1" }

func (s *Server) Port() int { return s.ln.Addr().(*net.TCPAddr).Port }

func (s *Server) Close() {
	s.ln.Close()
	s.mu.Lock()
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Fail makes every subsequent cmd request answer with an error message.
func (s *Server) Fail(cmd, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[cmd] = msg
}

// Delay holds back the reply to the next cmd request by d.
func (s *Server) Delay(cmd string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay[cmd] = d
}

func (s *Server) takeDelay(cmd string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.delay[cmd]
	delete(s.delay, cmd)
	return d
}

// Indexes returns the indexed fields registered for a collection.
func (s *Server) Indexes(collection string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(append([]string{}, s.indexes[collection]...), s.unique[collection]...)
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
		}()
	}
}

func (s *Server) handle(conn net.Conn) {
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()
	for {
		lenBuf := make([]byte, 4)
		if _, err := io.ReadFull(conn, lenBuf); err != nil {
			return
		}
		payload := make([]byte, binary.LittleEndian.Uint32(lenBuf))
		if _, err := io.ReadFull(conn, payload); err != nil {
			return
		}
		var req map[string]any
		resp := map[string]any{"ok": false, "error": "bad request"}
		if err := json.Unmarshal(payload, &req); err == nil {
			resp = s.dispatch(req)
			cmd, _ := req["cmd"].(string)
			if d := s.takeDelay(cmd); d > 0 {
				time.Sleep(d)
			}
		}
		out, _ := json.Marshal(resp)
		buf := make([]byte, 4+len(out))
		binary.LittleEndian.PutUint32(buf, uint32(len(out)))
		copy(buf[4:], out)
		if _, err := conn.Write(buf); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(req map[string]any) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd, _ := req["cmd"].(string)
	coll, _ := req["collection"].(string)
	if msg, ok := s.fail[cmd]; ok {
		return errResp(msg)
	}
	switch cmd {
	case "ping":
		return okResp("pong")
	case "create_collection":
		if _, ok := s.colls[coll]; !ok {
			s.colls[coll] = nil
		}
		return okResp("ok")
	case "drop_collection":
		delete(s.colls, coll)
		delete(s.nextID, coll)
		return okResp("ok")
	case "insert":
		doc, _ := req["doc"].(map[string]any)
		for _, field := range s.unique[coll] {
			for _, existing := range s.colls[coll] {
				if v, ok := doc[field]; ok && equal(existing[field], v) {
					return errResp(fmt.Sprintf("unique index violation on %s", field))
				}
			}
		}
		s.nextID[coll]++
		id := s.nextID[coll]
		stored := map[string]any{"_id": float64(id)}
		for k, v := range doc {
			stored[k] = v
		}
		s.colls[coll] = append(s.colls[coll], stored)
		return okResp(map[string]any{"id": float64(id)})
	case "find":
		docs := s.filter(coll, req["query"])
		if sortSpec, ok := req["sort"].(map[string]any); ok {
			sortDocs(docs, sortSpec)
		}
		if skip, ok := req["skip"].(float64); ok {
			docs = docs[min(int(skip), len(docs)):]
		}
		if limit, ok := req["limit"].(float64); ok && int(limit) < len(docs) {
			docs = docs[:int(limit)]
		}
		return okResp(docs)
	case "find_one":
		docs := s.filter(coll, req["query"])
		if len(docs) == 0 {
			return okResp(nil)
		}
		return okResp(docs[0])
	case "count":
		return okResp(map[string]any{"count": float64(len(s.filter(coll, req["query"])))})
	case "create_index":
		field, _ := req["field"].(string)
		s.indexes[coll] = append(s.indexes[coll], field)
		return okResp("ok")
	case "create_unique_index":
		field, _ := req["field"].(string)
		s.unique[coll] = append(s.unique[coll], field)
		return okResp("ok")
	case "create_composite_index":
		fields, _ := req["fields"].([]any)
		name := ""
		for i, f := range fields {
			if i > 0 {
				name += "+"
			}
			name += fmt.Sprint(f)
		}
		s.indexes[coll] = append(s.indexes[coll], name)
		return okResp("ok")
	default:
		return errResp("unknown command: " + cmd)
	}
}

func (s *Server) filter(coll string, query any) []map[string]any {
	q, _ := query.(map[string]any)
	out := []map[string]any{}
	for _, doc := range s.colls[coll] {
		match := true
		for k, v := range q {
			if !matchField(doc[k], v) {
				match = false
				break
			}
		}
		if match {
			out = append(out, doc)
		}
	}
	return out
}

// matchField supports plain equality and the comparison operators
// $lt, $lte, $gt, $gte and $ne.
func matchField(val, cond any) bool {
	ops, ok := cond.(map[string]any)
	if !ok || len(ops) == 0 {
		return equal(val, cond)
	}
	for op, arg := range ops {
		if !strings.HasPrefix(op, "$") {
			return equal(val, cond)
		}
		var hit bool
		switch op {
		case "$lt":
			hit = val != nil && less(val, arg)
		case "$lte":
			hit = val != nil && !less(arg, val)
		case "$gt":
			hit = val != nil && less(arg, val)
		case "$gte":
			hit = val != nil && !less(val, arg)
		case "$ne":
			hit = !equal(val, arg)
		case "$eq":
			hit = equal(val, arg)
		}
		if !hit {
			return false
		}
	}
	return true
}

func sortDocs(docs []map[string]any, spec map[string]any) {
	for field, dir := range spec {
		desc := fmt.Sprint(dir) == "-1"
		sort.SliceStable(docs, func(i, j int) bool {
			if desc {
				return less(docs[j][field], docs[i][field])
			}
			return less(docs[i][field], docs[j][field])
		})
	}
}

func less(a, b any) bool {
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		return af < bf
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

func equal(a, b any) bool {
	ab, _ := json.Marshal(a)
	bb, _ := json.Marshal(b)
	return string(ab) == string(bb)
}

func okResp(data any) map[string]any { return map[string]any{"ok": true, "data": data} }

func errResp(msg string) map[string]any { return map[string]any{"ok": false, "error": msg} }

// Addr is host:port, for logging in tests.
func (s *Server) Addr() string { return net.JoinHostPort(s.Host(), strconv.Itoa(s.Port())) }
