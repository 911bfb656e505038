// Command namectl signs and sends requests to a namegate server and tails its
// notification stream.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/GoPolymarket/namegate/internal/middleware"
	"github.com/GoPolymarket/namegate/internal/model"
	"github.com/GoPolymarket/namegate/internal/signer"
	"github.com/gorilla/websocket"
	"gopkg.in/urfave/cli.v1"
)

var (
	serverFlag = cli.StringFlag{
		Name:   "server",
		Usage:  "namegate base URL",
		Value:  "http://localhost:8080",
		EnvVar: "NAMEGATE_SERVER",
	}
	keyFlag = cli.StringFlag{
		Name:   "key",
		Usage:  "hex private key of the caller",
		EnvVar: "NAMEGATE_KEY",
	}
	adminKeyFlag = cli.StringFlag{
		Name:   "admin-key",
		Usage:  "send X-Admin-Key instead of a signature",
		EnvVar: "NAMEGATE_ADMIN_KEY",
	}
	idemFlag = cli.StringFlag{
		Name:  "idempotency-key",
		Usage: "X-Idempotency-Key header value",
	}
	kindFlag = cli.StringFlag{
		Name:  "kind",
		Usage: "only print notifications of this kind",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "namectl"
	app.Usage = "namegate client"
	app.Flags = []cli.Flag{serverFlag, keyFlag, adminKeyFlag}
	app.Commands = []cli.Command{
		{
			Name:   "address",
			Usage:  "Print the address of --key",
			Action: showAddress,
		},
		{
			Name:      "call",
			Usage:     "Send a signed request",
			ArgsUsage: "<METHOD> <PATH> [JSON BODY]",
			Flags:     []cli.Flag{idemFlag},
			Action:    call,
		},
		{
			Name:   "watch",
			Usage:  "Print notifications as they are committed",
			Flags:  []cli.Flag{kindFlag},
			Action: watch,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func showAddress(ctx *cli.Context) error {
	s, err := signer.NewSigner(ctx.GlobalString(keyFlag.Name))
	if err != nil {
		return err
	}
	fmt.Println(s.Address().Hex())
	return nil
}

func call(ctx *cli.Context) error {
	args := ctx.Args()
	if len(args) < 2 {
		return fmt.Errorf("usage: namectl call <METHOD> <PATH> [JSON BODY]")
	}
	method := strings.ToUpper(args[0])
	path := args[1]
	var body []byte
	if len(args) > 2 {
		body = []byte(args[2])
		if !json.Valid(body) {
			return fmt.Errorf("body is not valid JSON")
		}
	}

	req, err := http.NewRequest(method, strings.TrimRight(ctx.GlobalString(serverFlag.Name), "/")+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if key := ctx.String(idemFlag.Name); key != "" {
		req.Header.Set(middleware.HeaderIdempotencyKey, key)
	}

	if adminKey := ctx.GlobalString(adminKeyFlag.Name); adminKey != "" {
		req.Header.Set(middleware.HeaderAdminKey, adminKey)
	} else {
		s, err := signer.NewSigner(ctx.GlobalString(keyFlag.Name))
		if err != nil {
			return err
		}
		ts := time.Now().Unix()
		sig, err := s.SignRequest(method, req.URL.RequestURI(), ts, body)
		if err != nil {
			return err
		}
		req.Header.Set(middleware.HeaderCallerAddress, s.Address().Hex())
		req.Header.Set(middleware.HeaderCallerTimestamp, strconv.FormatInt(ts, 10))
		req.Header.Set(middleware.HeaderCallerSignature, sig)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n%s\n", resp.Status, out)
	if resp.StatusCode >= 400 {
		return cli.NewExitError("", 1)
	}
	return nil
}

func watch(ctx *cli.Context) error {
	u, err := url.Parse(ctx.GlobalString(serverFlag.Name))
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/events/stream"

	// 1. Dial
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u, err)
	}
	defer conn.Close()

	// 2. Read loop
	kind := model.NotificationKind(ctx.String(kindFlag.Name))
	for {
		var n model.Notification
		if err := conn.ReadJSON(&n); err != nil {
			return err
		}
		if kind != "" && n.Kind != kind {
			continue
		}
		line, _ := json.Marshal(n)
		fmt.Println(string(line))
	}
}
