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

// Package directory is the registry that maps resource ids to running
// agent endpoints.
package directory

import (
	"context"
	"encoding/json"
	"log"
	"time"

	bolt "go.etcd.io/bbolt"
)

var agentsBucket = []byte("agents")

// Registration is one directory entry: a running agent serving a
// resource.
type Registration struct {
	// Key is the agent process id.  Unique per registration.
	Key string `json:"key"`

	ResourceID string `json:"resource_id"`

	// Endpoint is where the agent can be reached (opaque here).
	Endpoint string `json:"endpoint,omitempty"`
}

// Directory is a bolt-backed registry.
//
// A nil *Directory is usable: every operation is a no-op that finds
// nothing, which lets callers run without persistence.
type Directory struct {
	Debug    bool
	filename string
	db       *bolt.DB
}

func NewDirectory(filename string) (*Directory, error) {
	return &Directory{
		filename: filename,
	}, nil
}

func (d *Directory) Open(ctx context.Context) error {
	opts := &bolt.Options{
		Timeout: time.Second,
	}

	db, err := bolt.Open(d.filename, 0644, opts)
	if err != nil {
		return err
	}
	d.db = db
	return nil
}

func (d *Directory) Close(ctx context.Context) error {
	if d == nil {
		return nil
	}
	return d.db.Close()
}

func (d *Directory) logf(format string, args ...interface{}) {
	if d == nil {
		return
	}
	if d.Debug {
		log.Printf("Directory "+format, args...)
	}
}

// Register writes (or overwrites) the registration keyed by its Key.
func (d *Directory) Register(ctx context.Context, reg *Registration) error {
	if d == nil {
		return nil
	}
	js, err := json.Marshal(reg)
	if err != nil {
		return err
	}
	d.logf("Register %s -> %s", reg.Key, reg.ResourceID)
	return d.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(agentsBucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(reg.Key), js)
	})
}

// Deregister removes the registration with the given key.
func (d *Directory) Deregister(ctx context.Context, key string) error {
	if d == nil {
		return nil
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(agentsBucket)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

// Find returns the registrations whose ResourceID matches.
//
// Zero matches is not an error here; the caller decides what absence
// means.  More than one match is possible and is the caller's
// inconsistency to report.
func (d *Directory) Find(ctx context.Context, resourceID string) ([]*Registration, error) {
	if d == nil {
		return nil, nil
	}
	regs := make([]*Registration, 0, 4)
	err := d.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(agentsBucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var reg Registration
			if err := json.Unmarshal(v, &reg); err != nil {
				return err
			}
			reg.Key = string(k)
			if reg.ResourceID == resourceID {
				regs = append(regs, &reg)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	d.logf("Find %s found %d", resourceID, len(regs))

	if len(regs) == 0 {
		return nil, nil
	}
	return regs, nil
}
