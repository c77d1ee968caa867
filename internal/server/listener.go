package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ConnHandler 处理一条已接受的连接。handler 返回后连接由 Server 关闭。
type ConnHandler interface {
	ServeConn(ctx context.Context, conn net.Conn)
}

// ConnHandlerFunc adapts a function to the ConnHandler interface.
type ConnHandlerFunc func(context.Context, net.Conn)

// ServeConn makes ConnHandlerFunc satisfy ConnHandler.
func (f ConnHandlerFunc) ServeConn(ctx context.Context, conn net.Conn) {
	f(ctx, conn)
}

// Server 为每条连接启动一个 goroutine，监听循环本身不参与会话。
type Server struct {
	handler ConnHandler
	logger  *logrus.Logger
	node    string

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

// NewServer 构造连接服务器，node 仅用于日志。
func NewServer(node string, handler ConnHandler, logger *logrus.Logger) *Server {
	return &Server{
		handler: handler,
		logger:  logger,
		node:    node,
		conns:   make(map[net.Conn]struct{}),
	}
}

// ListenAndServe 监听 addr 并阻塞直到 ctx 结束。
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve 在 ln 上接受连接。ctx 结束时关闭监听与所有活动连接，并等待会话退出。
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			ln.Close()
			s.closeAll()
		case <-stop:
		}
	}()

	s.logger.WithFields(logrus.Fields{
		"action": "listen",
		"node":   s.node,
		"addr":   ln.Addr().String(),
	}).Info("节点开始监听")

	var tempDelay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				tempDelay = nextDelay(tempDelay)
				s.logger.WithError(err).WithField("node", s.node).Warn("accept retry")
				time.Sleep(tempDelay)
				continue
			}
			s.wg.Wait()
			return err
		}
		tempDelay = 0

		s.track(conn, true)
		if ctx.Err() != nil {
			// closeAll 可能已在登记之前执行
			s.track(conn, false)
			conn.Close()
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.track(conn, false)
			defer conn.Close()
			s.handler.ServeConn(ctx, conn)
		}()
	}
}

func nextDelay(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	d *= 2
	if d > time.Second {
		d = time.Second
	}
	return d
}

func (s *Server) track(conn net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
		return
	}
	delete(s.conns, conn)
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
}

// ActiveSessions 返回当前活动连接数，供诊断接口使用。
func (s *Server) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}
