package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// WebSockets adds a websocket op endpoint at /ws/api to the mux.
//
// Each message is a JSON op, and each response is a JSON message.
// Ops from one connection run concurrently.
func (s *Service) WebSockets(ctx context.Context, mux *http.ServeMux) {
	var upgrader = websocket.Upgrader{} // use default options

	api := func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error", err)
			return
		}
		defer c.Close()

		var (
			writeMutex sync.Mutex
			wg         sync.WaitGroup
		)
		defer wg.Wait()

		for {
			mt, message, err := c.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Println("read error", err)
				}
				break
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				op := s.Process(ctx, message)
				js, err := json.Marshal(op)
				if err != nil {
					log.Printf("Marshal error %v on %#v", err, op)
					return
				}
				writeMutex.Lock()
				defer writeMutex.Unlock()
				if err = c.WriteMessage(mt, js); err != nil {
					log.Println("write:", err)
				}
			}()
		}
	}

	mux.HandleFunc("/ws/api", api)
}
