package invalidate

import (
	"bufio"
	"log"
	"net"
)

// Server accepts TCP subscribers for the invalidation feed.
type Server struct {
	Addr string
	Hub  *Hub

	ln net.Listener
}

func NewServer(addr string, hub *Hub) *Server {
	return &Server{Addr: addr, Hub: hub}
}

func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	log.Printf("[tcp-invalidate] listening on %s", s.Addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}

		s.Hub.Add(conn)
		s.Hub.Welcome(conn)
		log.Printf("[tcp-invalidate] client connected: %s", conn.RemoteAddr())

		go func(c net.Conn) {
			defer func() {
				s.Hub.Remove(c)
				log.Printf("[tcp-invalidate] client disconnected: %s", c.RemoteAddr())
			}()

			// Subscribers only listen; consume and discard anything sent.
			sc := bufio.NewScanner(c)
			for sc.Scan() {
			}
		}(conn)
	}
}

func (s *Server) Close() error {
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}
