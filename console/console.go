/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

/*
Package console implements a small line oriented command interface.

Commands are registered under a path of fixed tokens, e.g. "ptp servo offset".
Everything after the path is passed to the handler as arguments. The command
with the longest matching path wins, "?" prints help.
*/
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Errors returned by Execute
var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadArguments   = errors.New("bad arguments")
)

// Handler runs a command. args are tokens following the command path.
type Handler func(ctx context.Context, w io.Writer, args []string) error

// Command describes one registered command
type Command struct {
	// Path is space separated fixed part, e.g. "ptp servo params"
	Path string
	// Args is shown in help after Path, e.g. "[Kp Kd]"
	Args    string
	Help    string
	MinArgs int
	Handler Handler

	tokens []string
}

// Usage returns command line synopsis
func (c *Command) Usage() string {
	if c.Args == "" {
		return c.Path
	}
	return c.Path + " " + c.Args
}

// Registry holds commands
type Registry struct {
	// Prompt is printed by Serve before reading each line
	Prompt string

	mu       sync.RWMutex
	commands []*Command
}

// NewRegistry returns empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Tokenize splits command line by whitespace
func Tokenize(line string) []string {
	return strings.Fields(line)
}

// Register adds command. A command with the same path is replaced.
func (r *Registry) Register(c Command) error {
	c.tokens = Tokenize(c.Path)
	if len(c.tokens) == 0 {
		return fmt.Errorf("empty command path")
	}
	if c.tokens[0] == "?" {
		return fmt.Errorf("%q is reserved for help", "?")
	}
	if c.Handler == nil {
		return fmt.Errorf("command %q has no handler", c.Path)
	}
	c.Path = strings.Join(c.tokens, " ")
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, old := range r.commands {
		if old.Path == c.Path {
			log.Debugf("replacing command %q", c.Path)
			r.commands[i] = &c
			return nil
		}
	}
	r.commands = append(r.commands, &c)
	return nil
}

// Commands returns registered commands sorted by path
func (r *Registry) Commands() []Command {
	r.mu.RLock()
	res := make([]Command, 0, len(r.commands))
	for _, c := range r.commands {
		res = append(res, *c)
	}
	r.mu.RUnlock()
	sort.Slice(res, func(i, j int) bool { return res[i].Path < res[j].Path })
	return res
}

func (r *Registry) lookup(tokens []string) *Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best *Command
	for _, c := range r.commands {
		if len(c.tokens) > len(tokens) {
			continue
		}
		match := true
		for i, t := range c.tokens {
			if tokens[i] != t {
				match = false
				break
			}
		}
		if match && (best == nil || len(c.tokens) > len(best.tokens)) {
			best = c
		}
	}
	return best
}

// Help writes list of commands to w
func (r *Registry) Help(w io.Writer) {
	fmt.Fprintf(w, "%-40s %s\n", "?", "Print this help")
	for _, c := range r.Commands() {
		fmt.Fprintf(w, "%-40s %s\n", c.Usage(), c.Help)
	}
}

// Execute runs the command line. Empty line is a no-op.
func (r *Registry) Execute(ctx context.Context, w io.Writer, line string) error {
	tokens := Tokenize(line)
	if len(tokens) == 0 {
		return nil
	}
	if tokens[0] == "?" {
		r.Help(w)
		return nil
	}
	c := r.lookup(tokens)
	if c == nil {
		return fmt.Errorf("%q: %w", line, ErrUnknownCommand)
	}
	args := tokens[len(c.tokens):]
	if len(args) < c.MinArgs {
		return fmt.Errorf("%q needs at least %d arguments, usage: %s: %w", line, c.MinArgs, c.Usage(), ErrBadArguments)
	}
	return c.Handler(ctx, w, args)
}

// Serve executes lines read from in until EOF or ctx is done
func (r *Registry) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	fmt.Fprint(out, r.Prompt)
	go func() {
		s := bufio.NewScanner(in)
		for s.Scan() {
			select {
			case lines <- s.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- s.Err()
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			return err
		case line := <-lines:
			if err := r.Execute(ctx, out, line); err != nil {
				fmt.Fprintf(out, "%v, see help (?)\n", err)
			}
			fmt.Fprint(out, r.Prompt)
		}
	}
}

// HTTPHandler runs command line sent as POST body and replies with its output
func (r *Registry) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "use POST", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(io.LimitReader(req.Body, 1024))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var out strings.Builder
		if err := r.Execute(req.Context(), &out, string(body)); err != nil {
			code := http.StatusInternalServerError
			if errors.Is(err, ErrUnknownCommand) || errors.Is(err, ErrBadArguments) {
				code = http.StatusBadRequest
			}
			http.Error(w, err.Error(), code)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		if _, err := io.WriteString(w, out.String()); err != nil {
			log.Errorf("Failed to reply: %v", err)
		}
	})
}
