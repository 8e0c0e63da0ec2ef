// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package hs2

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/errs"
)

// SASL negotiation status bytes.
const (
	saslStart    byte = 1
	saslOK       byte = 2
	saslBad      byte = 3
	saslError    byte = 4
	saslComplete byte = 5
)

const maxSaslFrame = 16 << 20

type saslMechanism interface {
	Name() string
	Start() ([]byte, error)
	Step(challenge []byte) ([]byte, error)
	Complete() bool
}

// saslWrapper is implemented by mechanisms that protect the payload after
// negotiation.
type saslWrapper interface {
	Wrap(out []byte) ([]byte, error)
	Unwrap(in []byte) ([]byte, error)
}

type plainMechanism struct {
	username, password string
	done               bool
}

func (m *plainMechanism) Name() string { return "PLAIN" }

func (m *plainMechanism) Start() ([]byte, error) {
	m.done = true
	resp := make([]byte, 0, len(m.username)+len(m.password)+2)
	resp = append(resp, 0)
	resp = append(resp, m.username...)
	resp = append(resp, 0)
	resp = append(resp, m.password...)
	return resp, nil
}

func (m *plainMechanism) Step([]byte) ([]byte, error) {
	return nil, errs.New(errs.KindConnection, "PLAIN does not accept server challenges")
}

func (m *plainMechanism) Complete() bool { return m.done }

// saslTransport frames thrift traffic the way TSaslClientTransport does:
// a negotiation of status+length+payload messages followed by data
// frames prefixed with a 4 byte big endian length.
type saslTransport struct {
	trans thrift.TTransport
	mech  saslMechanism

	rbuf bytes.Reader
	wbuf bytes.Buffer
	hdr  [5]byte
}

func newSaslTransport(trans thrift.TTransport, mech saslMechanism) *saslTransport {
	return &saslTransport{trans: trans, mech: mech}
}

func (t *saslTransport) IsOpen() bool { return t.trans.IsOpen() }

func (t *saslTransport) Open() error {
	if !t.trans.IsOpen() {
		if err := t.trans.Open(); err != nil {
			return err
		}
	}
	if err := t.negotiate(); err != nil {
		_ = t.trans.Close()
		return err
	}
	return nil
}

func (t *saslTransport) negotiate() error {
	initial, err := t.mech.Start()
	if err != nil {
		return errs.Wrap(errs.KindConnection, err, "SASL %s failed to start", t.mech.Name())
	}
	if err := t.send(saslStart, []byte(t.mech.Name())); err != nil {
		return err
	}
	if err := t.send(t.nextStatus(), initial); err != nil {
		return err
	}

	for {
		status, payload, err := t.receive()
		if err != nil {
			return err
		}
		switch status {
		case saslOK:
			resp, err := t.mech.Step(payload)
			if err != nil {
				return errs.Wrap(errs.KindConnection, err, "SASL %s negotiation failed", t.mech.Name())
			}
			if err := t.send(t.nextStatus(), resp); err != nil {
				return err
			}
		case saslComplete:
			if !t.mech.Complete() {
				if _, err := t.mech.Step(payload); err != nil {
					return errs.Wrap(errs.KindConnection, err, "SASL %s negotiation failed", t.mech.Name())
				}
			}
			return nil
		case saslBad, saslError:
			return errs.New(errs.KindConnection, "SASL authentication failed: %s", payload)
		default:
			return errs.New(errs.KindConnection, "unexpected SASL status %d", status)
		}
	}
}

func (t *saslTransport) nextStatus() byte {
	if t.mech.Complete() {
		return saslComplete
	}
	return saslOK
}

func (t *saslTransport) send(status byte, payload []byte) error {
	t.hdr[0] = status
	binary.BigEndian.PutUint32(t.hdr[1:], uint32(len(payload)))
	if _, err := t.trans.Write(t.hdr[:]); err != nil {
		return errs.Wrap(errs.KindConnection, err, "SASL write failed")
	}
	if _, err := t.trans.Write(payload); err != nil {
		return errs.Wrap(errs.KindConnection, err, "SASL write failed")
	}
	if err := t.trans.Flush(context.Background()); err != nil {
		return errs.Wrap(errs.KindConnection, err, "SASL write failed")
	}
	return nil
}

func (t *saslTransport) receive() (byte, []byte, error) {
	if _, err := io.ReadFull(t.trans, t.hdr[:]); err != nil {
		return 0, nil, errs.Wrap(errs.KindConnection, err, "SASL read failed")
	}
	n := binary.BigEndian.Uint32(t.hdr[1:])
	if n > maxSaslFrame {
		return 0, nil, errs.New(errs.KindConnection, "SASL message of %d bytes exceeds the limit", n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(t.trans, payload); err != nil {
		return 0, nil, errs.Wrap(errs.KindConnection, err, "SASL read failed")
	}
	return t.hdr[0], payload, nil
}

func (t *saslTransport) Read(p []byte) (int, error) {
	if t.rbuf.Len() == 0 {
		if err := t.readFrame(); err != nil {
			return 0, err
		}
	}
	return t.rbuf.Read(p)
}

func (t *saslTransport) readFrame() error {
	var size [4]byte
	if _, err := io.ReadFull(t.trans, size[:]); err != nil {
		return err
	}
	n := binary.BigEndian.Uint32(size[:])
	if n > maxSaslFrame {
		return errs.New(errs.KindConnection, "frame of %d bytes exceeds the limit", n)
	}
	frame := make([]byte, n)
	if _, err := io.ReadFull(t.trans, frame); err != nil {
		return err
	}
	if w, ok := t.mech.(saslWrapper); ok {
		var err error
		if frame, err = w.Unwrap(frame); err != nil {
			return errs.Wrap(errs.KindConnection, err, "cannot unwrap SASL frame")
		}
	}
	t.rbuf.Reset(frame)
	return nil
}

func (t *saslTransport) Write(p []byte) (int, error) {
	return t.wbuf.Write(p)
}

func (t *saslTransport) Flush(ctx context.Context) error {
	frame := t.wbuf.Bytes()
	if w, ok := t.mech.(saslWrapper); ok {
		var err error
		if frame, err = w.Wrap(frame); err != nil {
			return errs.Wrap(errs.KindConnection, err, "cannot wrap SASL frame")
		}
	}
	defer t.wbuf.Reset()

	var size [4]byte
	binary.BigEndian.PutUint32(size[:], uint32(len(frame)))
	if _, err := t.trans.Write(size[:]); err != nil {
		return err
	}
	if _, err := t.trans.Write(frame); err != nil {
		return err
	}
	return t.trans.Flush(ctx)
}

// RemainingBytes is unknown across frames.
func (t *saslTransport) RemainingBytes() uint64 {
	return ^uint64(0)
}

func (t *saslTransport) Close() error {
	return t.trans.Close()
}
