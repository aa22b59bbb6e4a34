// Package main is a service that runs, steps, and searches with
// stored definitions.
//
// Ops are JSON:
//
//	{"id":"1","putDefinition":{"name":"abc","source":"rules: [{lhs: a, rhs: b}]"}}
//	{"id":"2","run":{"definition":"abc","input":"a"}}
//	{"id":"3","step":{"definition":"abc","input":"a","steps":1}}
//	{"id":"4","search":{"definition":"abc","input":"a","type":"=>!"}}
//
// Ops arrive over TCP (one per line), websockets (/ws/api), and
// optionally MQTT.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/Comcast/kexec/interpreters"
	"github.com/Comcast/kexec/storage"
	"github.com/Comcast/kexec/storage/bolt"
	"github.com/Comcast/kexec/tools"
)

func init() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.LUTC)
}

func main() {

	var (
		httpPort  = flag.String("h", ":8080", "HTTP (websockets) service port (empty to disable)")
		tcpPort   = flag.String("t", ":8081", "TCP service port (empty to disable)")
		storeFile = flag.String("p", "", "optional filename for persistence")
		defsDir   = flag.String("d", "", "optional directory of definitions (*.yaml, *.json) to load")
		maxSteps  = flag.Int("max-steps", 100000, "cap on steps per run and depth per search")
		maxConns  = flag.Int("max-conns", 64, "maximum concurrent TCP connections")
		record    = flag.Bool("record", false, "store a record of every op")
		mqttArgs  = flag.String("mqtt", "", "optional MQTT args (like mosquitto_sub's)")
		libDir    = flag.String("i", ".", "directory for ECMAScript libraries")
	)

	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store storage.Storage = storage.NewMemStorage()
	if *storeFile != "" {
		bs, err := bolt.NewStorage(*storeFile)
		if err != nil {
			log.Fatal(err)
		}
		if err = bs.Open(ctx); err != nil {
			log.Fatal(err)
		}
		defer bs.Close(ctx)
		store = bs
	}

	s := NewService(store, interpreters.StandardWithLibraries(*libDir))
	s.MaxSteps = *maxSteps
	s.Record = *record

	if *defsDir != "" {
		if err := s.LoadDir(ctx, *defsDir); err != nil {
			log.Fatal(err)
		}
	}

	if *mqttArgs != "" {
		c, _, err := NewMQTTCouplings(ctx, s, strings.Fields(*mqttArgs))
		if err != nil {
			log.Fatal(err)
		}
		if err = c.Start(ctx); err != nil {
			log.Fatal(err)
		}
	}

	errs := make(chan error, 2)

	if *httpPort != "" {
		mux := http.NewServeMux()
		s.WebSockets(ctx, mux)
		go func() {
			log.Printf("HTTP service on %s", *httpPort)
			errs <- http.ListenAndServe(*httpPort, mux)
		}()
	}

	if *tcpPort != "" {
		go func() {
			errs <- s.TCPService(ctx, *tcpPort, *maxConns)
		}()
	}

	if *httpPort == "" && *tcpPort == "" && *mqttArgs == "" {
		log.Fatal("no transports")
	}

	if err := <-errs; err != nil {
		log.Fatal(err)
	}
}

// LoadDir puts every definition file in the directory.  A
// definition's name is its filename without the extension.
// '%inline("NAME")' directives are expanded.
func (s *Service) LoadDir(ctx context.Context, dir string) error {
	for _, pattern := range []string{"*.yaml", "*.json"} {
		filenames, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return err
		}
		for _, filename := range filenames {
			src, err := tools.ReadFileWithInlines(filename)
			if err != nil {
				return err
			}
			name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
			if _, err = s.PutDefinition(ctx, name, src); err != nil {
				log.Printf("LoadDir %s: %s", filename, err)
				return err
			}
		}
	}
	return nil
}
