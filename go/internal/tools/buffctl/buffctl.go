package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"connectrpc.com/connect"
	"github.com/mcdev12/buffring/go/internal/gateway"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: buffctl [flags] <command>

commands:
  add <buff> <seconds>
  extend <buff> <seconds>
  remove <buff>
  list

flags:
`)
	flag.PrintDefaults()
}

func main() {
	via := flag.String("via", "connect", "transport for commands: connect or nats")
	server := flag.String("server", "http://localhost:8090", "overlay server base URL")
	natsURL := flag.String("nats", nats.DefaultURL, "NATS server URL")
	subjectPrefix := flag.String("subject", "buff.commands", "JetStream subject prefix")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if args[0] == "list" {
		if err := list(ctx, *server); err != nil {
			fmt.Fprintf(os.Stderr, "list: %v\n", err)
			os.Exit(1)
		}
		return
	}

	msg, err := buildMessage(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		usage()
		os.Exit(2)
	}

	switch *via {
	case "connect":
		err = sendConnect(ctx, *server, msg)
	case "nats":
		err = sendNATS(ctx, *natsURL, *subjectPrefix, msg)
	default:
		err = fmt.Errorf("unknown transport %q", *via)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "send: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("sent %s %s via %s\n", msg["action"], msg["buff"], *via)
}

func buildMessage(args []string) (map[string]any, error) {
	action := args[0]
	switch action {
	case "add", "extend":
		if len(args) != 3 {
			return nil, fmt.Errorf("%s needs <buff> <seconds>", action)
		}
		seconds, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid seconds %q: %w", args[2], err)
		}
		return map[string]any{"action": action, "buff": args[1], "duration": seconds}, nil
	case "remove":
		if len(args) != 2 {
			return nil, fmt.Errorf("remove needs <buff>")
		}
		return map[string]any{"action": action, "buff": args[1]}, nil
	default:
		return nil, fmt.Errorf("unknown command %q", action)
	}
}

func sendConnect(ctx context.Context, server string, msg map[string]any) error {
	req, err := structpb.NewStruct(msg)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	client := connect.NewClient[structpb.Struct, emptypb.Empty](
		http.DefaultClient,
		server+gateway.BuffServiceSendProcedure,
		connect.WithProtoJSON(),
	)
	_, err = client.CallUnary(ctx, connect.NewRequest(req))
	return err
}

func sendNATS(ctx context.Context, url, prefix string, msg map[string]any) error {
	nc, err := nats.Connect(url, nats.Name("buffctl"))
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	subject := commandSubject(prefix, msg)
	ack, err := js.Publish(ctx, subject, data)
	if err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	fmt.Printf("published to %s (stream %s, seq %d)\n", subject, ack.Stream, ack.Sequence)
	return nil
}

// commandSubject keys the subject on the action. Buff names may hold spaces
// or wildcard characters and travel in the payload only
func commandSubject(prefix string, msg map[string]any) string {
	action, _ := msg["action"].(string)
	return prefix + "." + action
}

func list(ctx context.Context, server string) error {
	client := connect.NewClient[emptypb.Empty, structpb.Struct](
		http.DefaultClient,
		server+gateway.BuffServiceListBuffsProcedure,
		connect.WithProtoJSON(),
	)
	resp, err := client.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return err
	}
	out, err := protojson.MarshalOptions{Multiline: true}.Marshal(resp.Msg)
	if err != nil {
		return fmt.Errorf("format response: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
