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
	"testing"

	"github.com/hs2adbc/adbc-hiveserver2/driver/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedTransport replays server bytes and records client bytes.
type scriptedTransport struct {
	in   *bytes.Reader
	out  bytes.Buffer
	open bool
}

func (s *scriptedTransport) Read(p []byte) (int, error) { return s.in.Read(p) }
func (s *scriptedTransport) Write(p []byte) (int, error) { return s.out.Write(p) }
func (s *scriptedTransport) Flush(context.Context) error { return nil }
func (s *scriptedTransport) RemainingBytes() uint64 { return uint64(s.in.Len()) }

func (s *scriptedTransport) Open() error {
	s.open = true
	return nil
}

func (s *scriptedTransport) IsOpen() bool { return s.open }

func (s *scriptedTransport) Close() error {
	s.open = false
	return nil
}

func TestSaslPlainHandshake(t *testing.T) {
	server := []byte{saslComplete, 0, 0, 0, 0}
	server = append(server, 0, 0, 0, 3, 'a', 'b', 'c')
	trans := &scriptedTransport{in: bytes.NewReader(server)}

	sasl := newSaslTransport(trans, &plainMechanism{username: "bob", password: "pw"})
	require.NoError(t, sasl.Open())
	assert.True(t, sasl.IsOpen())

	want := []byte{saslStart, 0, 0, 0, 5, 'P', 'L', 'A', 'I', 'N'}
	want = append(want, saslComplete, 0, 0, 0, 7, 0, 'b', 'o', 'b', 0, 'p', 'w')
	assert.Equal(t, want, trans.out.Bytes())

	trans.out.Reset()
	_, err := sasl.Write([]byte("xyz"))
	require.NoError(t, err)
	require.NoError(t, sasl.Flush(context.Background()))
	assert.Equal(t, []byte{0, 0, 0, 3, 'x', 'y', 'z'}, trans.out.Bytes())

	buf := make([]byte, 8)
	n, err := sasl.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(buf[:n]))
}

func TestSaslRejected(t *testing.T) {
	server := []byte{saslBad, 0, 0, 0, 4, 'n', 'o', 'p', 'e'}
	trans := &scriptedTransport{in: bytes.NewReader(server)}

	err := newSaslTransport(trans, &plainMechanism{username: "bob"}).Open()
	require.ErrorIs(t, err, errs.ErrConnection)
	assert.Contains(t, err.Error(), "nope")
	assert.False(t, trans.open)
}

func TestPlainRejectsChallenges(t *testing.T) {
	server := []byte{saslOK, 0, 0, 0, 1, 'x'}
	trans := &scriptedTransport{in: bytes.NewReader(server)}

	err := newSaslTransport(trans, &plainMechanism{username: "bob"}).Open()
	assert.ErrorIs(t, err, errs.ErrConnection)
}
