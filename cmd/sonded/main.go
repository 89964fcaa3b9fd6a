/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// sonded hosts a fleet of instrument agents.
//
// Agents are launched from definitions in the definitions directory.
// The op protocol is served over TCP (line-oriented), WebSockets, and
// plain HTTP.  Agent state notices can be published to MQTT and
// POSTed to an HTTP sink.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"net/http"
	"os"
	"regexp"
	"runtime/pprof"
	"strings"

	"github.com/Comcast/sonde/tools"
	"github.com/Comcast/sonde/util"
	. "github.com/Comcast/sonde/util/testutil"
)

func main() {

	var (
		dbFile  = flag.String("d", "sonde.db", "directory storage filename")
		qcFile  = flag.String("q", "", "QC stored values filename")
		defsDir = flag.String("f", "defs", "definitions directory")

		bootFile = flag.String("b", "", "file to read for initial ops")

		httpPort  = flag.String("h", "", "HTTP port for our service")
		wsService = flag.Bool("w", true, "WebSockets service")
		httpDir   = flag.String("s", "", "directory to serve via HTTP")
		tcpPort   = flag.String("t", ":9000", "port for our TCP listener")

		mqttArgs  = flag.String("mq", "", "MQTT publisher args (mosquitto-style)")
		noticeURL = flag.String("notices", "", "URL for HTTP notice sink")

		listenOnStdin = flag.Bool("I", false, "listen for ops on stdin")
	)

	flag.BoolVar(&util.Logging, "v", false, "log lots of wonderful things")

	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())

	s, err := NewService(ctx, *defsDir, *dbFile, *qcFile)
	if err != nil {
		panic(err)
	}
	s.Tracing = util.Logging

	var mq *MQTTNotices
	if *mqttArgs != "" {
		mq, _ = NewMQTTNotices(strings.Fields(*mqttArgs))
		if err = mq.Start(ctx); err != nil {
			panic(err)
		}
		defer mq.Stop(ctx)
	}

	var sink *NoticeSink
	if *noticeURL != "" {
		if sink, err = NewNoticeSink(*noticeURL); err != nil {
			panic(err)
		}
	}

	// Fan the notice firehose out to the op stream, MQTT, and the
	// HTTP sink.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case n := <-s.Notices:
				util.Logf("notice %s", JS(n))
				s.op(ctx, map[string]interface{}{
					"notice": n,
				})
				if mq != nil {
					if err := mq.Publish(ctx, n); err != nil {
						log.Printf("MQTT publish error %v", err)
					}
				}
				if sink != nil {
					if err := sink.Send(ctx, n); err != nil {
						log.Printf("notice sink error %v", err)
					}
				}
			}
		}
	}()

	if *bootFile != "" {
		if err := s.Boot(ctx, *bootFile); err != nil {
			panic(err)
		}
	}

	if *listenOnStdin {
		go func() {
			if err = s.Listener(ctx, bufio.NewReader(os.Stdin), os.Stdout, nil); err != nil {
				log.Printf("Service.Listener os.Stdin os.Stdout error %s", err)
			}
			util.Logf("stdin listener done")
			cancel()
		}()
	}

	if *tcpPort != "" {
		go func() {
			if err := s.TCPService(ctx, *tcpPort); err != nil {
				panic(fmt.Errorf("Service.Listener TCP error %s", err))
			}
		}()
	}

	if *httpPort != "" {
		go func() {
			if *wsService {
				log.Printf("WebSockets service starting")
				if err := s.WebSocketService(ctx); err != nil {
					panic(err)
				}
			}

			if *httpDir != "" {
				log.Printf("HTTP serving files in %s", *httpDir)
				fs := http.FileServer(http.Dir(*httpDir))
				http.Handle("/static/", http.StripPrefix("/static", fs))
			}

			p := regexp.MustCompile("/defs/([-a-zA-Z0-9_]+)\\.html")

			http.HandleFunc("/defs/", func(w http.ResponseWriter, r *http.Request) {
				ss := p.FindStringSubmatch(r.RequestURI)
				if ss == nil {
					fmt.Fprintf(w, "No definition name in %s", r.RequestURI)
					return
				}
				err := tools.ReadAndRenderDefPage(*defsDir+"/"+ss[1]+".yaml", nil, w)
				if err != nil {
					fmt.Fprintf(w, "ReadAndRenderDefPage error: %s", err)
				}
			})

			log.Printf("HTTP service on %s", *httpPort)
			if err = s.HTTPServer(ctx, *httpPort); err != nil {
				panic(err)
			}
		}()
	}

	<-ctx.Done()
}

func (s *Service) HTTPServer(ctx context.Context, port string) error {
	complain := func(w http.ResponseWriter, x interface{}, status int) {
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"error":"%s"}`+"\n", x)
	}

	http.Handle("/goroutines", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pprof.Lookup("goroutine").WriteTo(w, 1)
	}))

	http.Handle("/api", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		js, err := ioutil.ReadAll(r.Body)
		if err != nil {
			complain(w, err, http.StatusBadRequest)
			return
		}
		if err := r.Body.Close(); err != nil {
			log.Printf("Service.HTTPServer warning on Body.Close(): %v", err)
		}

		var op SOp
		if err := json.Unmarshal(js, &op); err != nil {
			complain(w, err, http.StatusBadRequest)
			return
		}
		if err = op.Do(ctx, s); err != nil {
			complain(w, err, http.StatusInternalServerError)
			return
		}
		js, err = json.Marshal(&op)
		if err != nil {
			complain(w, err, http.StatusInternalServerError)
		}
		if _, err = w.Write(js); err != nil {
			log.Printf("Service.HTTPServer warning on Write(): %v", err)
		}
	}))

	return http.ListenAndServe(port, nil)
}

// Boot reads ops, one JSON op per line, from a file.
func (s *Service) Boot(ctx context.Context, filename string) error {
	in, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer in.Close()

	r := bufio.NewReader(in)
	for {
		line, err := r.ReadBytes('\n')
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 || bytes.HasPrefix(line, []byte("#")) || bytes.HasPrefix(line, []byte("//")) {
			continue
		}
		var op SOp
		if err = json.Unmarshal(line, &op); err != nil {
			return err
		}
		if err := op.Do(ctx, s); err != nil {
			return err
		}
	}

	return nil
}
