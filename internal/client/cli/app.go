// Package cli implements the homesite admin command line tool. It talks to
// the auth gRPC API and never stores credentials on disk.
package cli

import (
	"bufio"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/homesite/internal/authrpc"
	"github.com/dmitrijs2005/homesite/internal/common"
	"github.com/urfave/cli/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

const (
	DefaultAddr = "localhost:50051"
	AddrEnv     = "HOMESITE_ADDR"
	TokenEnv    = "HOMESITE_TOKEN"
)

var ErrPasswordMismatch = errors.New("passwords do not match")

// AuthClient is the subset of authrpc.Client used by the commands.
type AuthClient interface {
	Register(ctx context.Context, in *authrpc.RegisterRequest, opts ...grpc.CallOption) (*authrpc.RegisterResponse, error)
	Login(ctx context.Context, in *authrpc.LoginRequest, opts ...grpc.CallOption) (*authrpc.LoginResponse, error)
	WhoAmI(ctx context.Context, in *authrpc.WhoAmIRequest, opts ...grpc.CallOption) (*authrpc.WhoAmIResponse, error)
}

// Connector opens a client for addr. The returned func releases it.
type Connector func(addr string) (AuthClient, func() error, error)

// DialConnector connects over gRPC with the JSON codec.
func DialConnector(addr string) (AuthClient, func() error, error) {
	cc, err := authrpc.Dial(addr)
	if err != nil {
		return nil, nil, err
	}
	return authrpc.NewClient(cc), cc.Close, nil
}

type App struct {
	reader  *bufio.Reader
	out     io.Writer
	connect Connector
}

func NewApp(in io.Reader, out io.Writer, connect Connector) *App {
	if connect == nil {
		connect = DialConnector
	}
	return &App{reader: bufio.NewReader(in), out: out, connect: connect}
}

// Command builds the urfave/cli application.
func (a *App) Command() *cli.App {
	return &cli.App{
		Name:      "homesite-admin",
		Usage:     "manage homesite accounts over the auth API",
		Writer:    a.out,
		ErrWriter: a.out,
		// main reports errors and picks the exit code.
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Aliases: []string{"a"},
				Usage:   "auth gRPC endpoint",
				EnvVars: []string{AddrEnv},
				Value:   DefaultAddr,
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "register",
				Usage:  "create a new account",
				Action: a.withClient(a.register),
			},
			{
				Name:   "login",
				Usage:  "log in and print an access token",
				Action: a.withClient(a.login),
			},
			{
				Name:  "whoami",
				Usage: "show the account a token belongs to",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "token",
						Aliases:  []string{"t"},
						Usage:    "access token",
						EnvVars:  []string{TokenEnv},
						Required: true,
					},
				},
				Action: a.withClient(a.whoAmI),
			},
		},
	}
}

type action func(c *cli.Context, client AuthClient) error

func (a *App) withClient(fn action) cli.ActionFunc {
	return func(c *cli.Context) error {
		client, closeFn, err := a.connect(c.String("addr"))
		if err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		defer closeFn()

		if err := fn(c, client); err != nil {
			return errors.New(errorMessage(err))
		}
		return nil
	}
}

func (a *App) register(c *cli.Context, client AuthClient) error {
	email, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := GetPassword(a.out, "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	confirm, err := GetPassword(a.out, "Repeat password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if subtle.ConstantTimeCompare(password, confirm) != 1 {
		return ErrPasswordMismatch
	}

	resp, err := client.Register(c.Context, &authrpc.RegisterRequest{Email: email, Password: string(password)})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "User registered successfully (id %s)\n", resp.ID)
	return nil
}

func (a *App) login(c *cli.Context, client AuthClient) error {
	email, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := GetPassword(a.out, "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	resp, err := client.Login(c.Context, &authrpc.LoginRequest{Email: email, Password: string(password)})
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, resp.Token)
	return nil
}

func (a *App) whoAmI(c *cli.Context, client AuthClient) error {
	ctx := authrpc.WithToken(c.Context, c.String("token"))
	resp, err := client.WhoAmI(ctx, &authrpc.WhoAmIRequest{})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "id:      %s\nemail:   %s\ncreated: %s\n", resp.ID, resp.Email, resp.CreatedAt.Format("2006-01-02 15:04:05Z07:00"))
	return nil
}

// errorMessage strips the gRPC envelope from server errors.
func errorMessage(err error) string {
	if s, ok := status.FromError(err); ok {
		return s.Message()
	}
	return err.Error()
}
