// Command shill-cli is an interactive companion tool for shilld, mirroring
// cmd/mash-controller's interactive mode: a readline-driven REPL that
// issues bus method calls against a running daemon and prints the replies.
//
// Usage:
//
//	shill-cli [--socket /run/shilld/control.sock]
//
// Commands:
//
//	connect <object>              invoke Connect on a Service object
//	disconnect <object>           invoke Disconnect on a Service object
//	remove <object>               invoke Remove on a Service object
//	movebefore <object> <other>   invoke MoveBefore, reordering object ahead of other
//	moveafter <object> <other>    invoke MoveAfter, reordering object behind other
//	activate <object>             invoke ActivateCellularModem on a Service object
//	help                          show this command list
//	quit                          exit shill-cli
package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fxamacker/cbor/v2"

	"github.com/shillgo/shillgo/pkg/wire"
)

func main() {
	socketPath := flag.String("socket", "/run/shilld/control.sock", "path to shilld's control socket")
	flag.Parse()

	conn, err := net.Dial("unix", *socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shill-cli: failed to connect to %s: %v\n", *socketPath, err)
		os.Exit(1)
	}
	defer conn.Close()

	client := &client{
		enc:       wire.NewEncoder(conn),
		dec:       wire.NewDecoder(conn),
		nextMsgID: 1,
	}

	rl, err := readline.New("shill> ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "shill-cli: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	printHelp()

	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF on Ctrl-D, readline.ErrInterrupt on Ctrl-C
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		cmd := strings.ToLower(fields[0])
		args := fields[1:]

		switch cmd {
		case "help", "?":
			printHelp()
		case "quit", "exit":
			return
		case "connect":
			client.invoke(wire.MethodConnect, args)
		case "disconnect":
			client.invoke(wire.MethodDisconnect, args)
		case "remove":
			client.invoke(wire.MethodRemove, args)
		case "movebefore":
			client.invokeMove(wire.MethodMoveBefore, args)
		case "moveafter":
			client.invokeMove(wire.MethodMoveAfter, args)
		case "activate":
			client.invoke(wire.MethodActivateCellularModem, args)
		default:
			fmt.Printf("unknown command %q; type 'help'\n", cmd)
		}
	}
}

func printHelp() {
	fmt.Println(`commands:
  connect <object>            invoke Connect on a Service object
  disconnect <object>         invoke Disconnect on a Service object
  remove <object>             invoke Remove on a Service object
  movebefore <object> <other> invoke MoveBefore, reordering object ahead of other
  moveafter <object> <other>  invoke MoveAfter, reordering object behind other
  activate <object>           invoke ActivateCellularModem on a Service object
  help                        show this list
  quit                        exit shill-cli`)
}

// client frames each MethodCall/MethodReply pair over a single persistent
// connection, relying on the CBOR codec's own self-delimiting encoding
// (successive Encode/Decode calls on the same stream, no extra length
// prefix needed) rather than building a dedicated framing layer.
type client struct {
	enc       *cbor.Encoder
	dec       *cbor.Decoder
	nextMsgID uint32
}

func (c *client) invoke(method wire.Method, args []string) {
	if len(args) != 1 {
		name := strings.ToLower(method.String())
		if method == wire.MethodActivateCellularModem {
			name = "activate"
		}
		fmt.Printf("usage: %s <object>\n", name)
		return
	}

	call := &wire.MethodCall{
		MessageID: c.nextMsgID,
		Object:    args[0],
		Method:    method,
	}
	c.send(call)
}

// invokeMove issues MoveBefore/MoveAfter, which carry the target Service to
// reorder against as a typed MoveArgs payload rather than a bare object path.
func (c *client) invokeMove(method wire.Method, args []string) {
	if len(args) != 2 {
		fmt.Printf("usage: %s <object> <other>\n", strings.ToLower(method.String()))
		return
	}

	call := &wire.MethodCall{
		MessageID: c.nextMsgID,
		Object:    args[0],
		Method:    method,
	}
	if err := call.SetArgs(wire.MoveArgs{Other: args[1]}); err != nil {
		fmt.Printf("encode args failed: %v\n", err)
		return
	}
	c.send(call)
}

// send transmits call, prints its reply, and follows a deferred reply
// through to its terminal completion.
func (c *client) send(call *wire.MethodCall) {
	c.nextMsgID++

	if err := c.enc.Encode(call); err != nil {
		fmt.Printf("send failed: %v\n", err)
		return
	}

	var reply wire.MethodReply
	if err := c.dec.Decode(&reply); err != nil {
		if err == io.EOF {
			fmt.Println("daemon closed the connection")
			os.Exit(1)
		}
		fmt.Printf("receive failed: %v\n", err)
		return
	}

	if reply.IsDeferred() {
		fmt.Printf("initiated (token=%s), awaiting completion...\n", reply.Token)
		var final wire.MethodReply
		if err := c.dec.Decode(&final); err != nil {
			fmt.Printf("receive failed: %v\n", err)
			return
		}
		fmt.Printf("-> %s\n", final.Status)
		return
	}
	fmt.Printf("-> %s\n", reply.Status)
}
