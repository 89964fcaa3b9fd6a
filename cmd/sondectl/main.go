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

// sondectl talks to a sonded WebSocket service.
//
// Ops read from stdin, one JSON op per line, go to the service.
// Everything the service says, including the notice firehose, goes to
// stdout.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/gorilla/websocket"
)

func main() {
	var (
		service = flag.String("s", "ws://localhost:8080/ws/api", "sonded WebSocket URL")
	)

	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	u, err := url.Parse(*service)
	if err != nil {
		log.Fatal(err)
	}

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			_, message, err := c.ReadMessage()
			if err != nil {
				log.Printf("read error %v", err)
				cancel()
				return
			}
			fmt.Printf("%s\n", message)
		}
	}()

	in := bufio.NewReader(os.Stdin)
	for {
		line, err := in.ReadString('\n')
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatal(err)
		}

		sl := strings.TrimSpace(line)
		if sl == "" || strings.HasPrefix(sl, "#") {
			continue
		}

		if err = c.WriteMessage(websocket.TextMessage, []byte(sl)); err != nil {
			log.Fatal(err)
		}
	}
}
