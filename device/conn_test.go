// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"strings"

	"github.com/scrapli/scrapligo/channel"
	"github.com/scrapli/scrapligo/response"
	"github.com/scrapli/scrapligo/util"
)

// fakeConn is an in-memory Conn recording everything sent through it.
// SendInteractive replies are served from a FIFO queue; an exhausted queue
// yields an empty result.
type fakeConn struct {
	commands    []string
	configs     [][]string
	interactive []string
	privs       []string
	closeCount  int

	commandOut     map[string]string
	interactiveOut []string
	configsErr     error
	interactiveErr []error
	prompt         string
}

func (f *fakeConn) SendCommand(command string, _ ...util.Option) (*response.Response, error) {
	f.commands = append(f.commands, command)
	return &response.Response{Result: f.commandOut[command]}, nil
}

func (f *fakeConn) SendConfigs(configs []string, _ ...util.Option) (*response.MultiResponse, error) {
	f.configs = append(f.configs, configs)
	if f.configsErr != nil {
		return nil, f.configsErr
	}
	mr := response.NewMultiResponse("fake")
	for range configs {
		mr.AppendResponse(&response.Response{})
	}
	return mr, nil
}

func (f *fakeConn) SendInteractive(events []*channel.SendInteractiveEvent, _ ...util.Option) (*response.Response, error) {
	var inputs []string
	for _, e := range events {
		inputs = append(inputs, e.ChannelInput)
	}
	f.interactive = append(f.interactive, strings.Join(inputs, "\n"))

	call := len(f.interactive) - 1
	if call < len(f.interactiveErr) && f.interactiveErr[call] != nil {
		return nil, f.interactiveErr[call]
	}

	var result string
	if call < len(f.interactiveOut) {
		result = f.interactiveOut[call]
	}
	return &response.Response{Result: result}, nil
}

func (f *fakeConn) GetPrompt() (string, error) {
	return f.prompt, nil
}

func (f *fakeConn) AcquirePriv(target string) error {
	f.privs = append(f.privs, target)
	return nil
}

func (f *fakeConn) Close() error {
	f.closeCount++
	return nil
}
