package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync"

	"golang.org/x/net/netutil"
)

// TCPService accepts connections that send one JSON op per line.
// Each response is a line of JSON.  At most maxConns connections are
// served at once (if maxConns is positive).
func (s *Service) TCPService(ctx context.Context, port string, maxConns int) error {
	log.Printf("TCPService on %s", port)

	l, err := net.Listen("tcp", port)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l, maxConns)
}

// Serve is TCPService with a given listener, which is closed when
// the context is done.
func (s *Service) Serve(ctx context.Context, l net.Listener, maxConns int) error {
	if 0 < maxConns {
		l = netutil.LimitListener(l, maxConns)
	}

	go func() {
		<-ctx.Done()
		l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}

		go func() {
			if err := s.Listener(ctx, bufio.NewReader(conn), conn); err != nil {
				log.Printf("TCPService: %s", err)
			}
			conn.Close()
		}()
	}
}

// Listener reads ops from in and writes responses to out.  Each op
// runs in its own goroutine.  Listener returns after the input ends
// and all the responses have been written.
func (s *Service) Listener(ctx context.Context, in *bufio.Reader, out io.Writer) error {
	var (
		sayMutex sync.Mutex
		wg       sync.WaitGroup
	)

	say := func(x interface{}) {
		js, err := json.Marshal(&x)
		if err != nil {
			log.Printf("Service.Listener warning on rendering: %s on %#v", err, x)
			js = []byte(fmt.Sprintf(`{"err":%q}`, err.Error()))
		}
		js = append(js, '\n')

		sayMutex.Lock()
		defer sayMutex.Unlock()
		if _, err = out.Write(js); err != nil {
			log.Printf("Service.Listener warning on Write: %s", err)
		}
	}

	defer wg.Wait()

	for {
		line, err := in.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return err
		}

		if sl := strings.TrimSpace(string(line)); sl != "" && !strings.HasPrefix(sl, "#") {
			wg.Add(1)
			go func() {
				defer wg.Done()
				say(s.Process(ctx, []byte(sl)))
			}()
		}

		if err == io.EOF {
			return nil
		}
	}
}
