package cli

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/paydesk/internal/client/client"
	"github.com/dmitrijs2005/paydesk/internal/client/config"
)

type App struct {
	config   *config.Config
	api      client.Client
	reader   *bufio.Reader
	userName string
	role     string
}

func NewApp(c *config.Config) (*App, error) {

	apiClient, err := client.NewPayDeskClient(c.ServerEndpointAddr, c.RequestTimeout)
	if err != nil {
		return nil, err
	}

	return &App{config: c, api: apiClient, reader: bufio.NewReader(os.Stdin)}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.api.Close()

	log.Println("Welcome to PayDesk CLI (type 'help' for commands)")
	if err := a.api.Ping(ctx); err != nil {
		log.Printf("Server %s is not reachable: %s", a.config.ServerEndpointAddr, err.Error())
	}

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

func (a *App) isLoggedIn() bool {
	return a.userName != ""
}

func (a *App) getStatus() string {
	if !a.isLoggedIn() {
		return ""
	}
	return fmt.Sprintf("(%s %s)", a.userName, a.role)
}
