package api

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/rpc"
	"os"
	"strings"
	"time"

	"github.com/posedaemon/posed/api/auth"
	"github.com/posedaemon/posed/pkg/database"
	"github.com/posedaemon/posed/pkg/database/repos"
	"github.com/posedaemon/posed/pkg/log"
	"github.com/posedaemon/posed/pkg/pipeline"
	"github.com/posedaemon/posed/pkg/posed"
	"gorm.io/gorm"
)

const SIGREMOTE = Signal(0x1)

type Signal int

func (s Signal) Signal() {}

func (s Signal) String() string {
	return "remote-shutdown"
}

type Options struct {
	RPCListenPort string
	SigningSecret string
}

type Session struct {
	Token string
}

// ConfigSnapshot is the read-only configuration view exposed over RPC.
type ConfigSnapshot struct {
	StreamTitle   string
	StreamAddress string
	ModelName     string
	NetResolution string
	ImgResolution string
	ScaleMode     int
	RenderOutput  bool
	TickPeriodMS  int
}

type PoseServer struct {
	interrupt     chan os.Signal
	s             *posed.Server
	httpServer    *http.Server
	rpcListenPort string
	signingSecret string
	db            *gorm.DB
}

func New(interrupt chan os.Signal, server *posed.Server, opts Options) (*PoseServer, error) {
	db, err := database.Connect()
	if err != nil {
		return nil, fmt.Errorf("unable to connect to DB, try running the setup: %w", err)
	}
	return &PoseServer{
		interrupt:     interrupt,
		s:             server,
		httpServer:    &http.Server{},
		rpcListenPort: opts.RPCListenPort,
		signingSecret: opts.SigningSecret,
		db:            db,
	}, nil
}

func StartRPC(p *PoseServer) error {
	err := rpc.Register(p)
	if err != nil {
		return err
	}
	rpc.HandleHTTP()

	l, err := net.Listen("tcp", p.rpcListenPort)
	if err != nil {
		return err
	}

	errs := make(chan error)
	go func() {
		httpErr := p.httpServer.Serve(l)
		if httpErr != nil {
			errs <- httpErr
		}
		errs <- nil
	}()

	select {
	case err := <-errs:
		return err
	default:
		return nil
	}
}

func ShutdownRPC(p *PoseServer) error {
	if p != nil && p.httpServer != nil {
		return p.httpServer.Close()
	}
	return errors.New("API server not running")
}

func (p *PoseServer) Authenticate(authContents string, resp *string) error {
	usernameAndPassword, err := validateAuth(authContents)
	if err != nil {
		return err
	}

	username := usernameAndPassword[0]
	password := usernameAndPassword[1]

	userRepo := repos.UserRepository{DB: p.db}
	if err := userRepo.Authenticate(username, password); err != nil {
		return err
	}

	token, err := auth.GenToken(p.signingSecret, username)
	if err != nil {
		return err
	}

	*resp = token
	return nil
}

// Exposed API
func (p *PoseServer) Config(sess *Session, resp *ConfigSnapshot) error {
	if err := p.validateSession(*sess); err != nil {
		return err
	}

	config := p.s.Config()
	*resp = ConfigSnapshot{
		StreamTitle:   config.Stream.Title,
		StreamAddress: config.Stream.Address,
		ModelName:     config.Pose.ModelName,
		NetResolution: config.Pose.NetResolution,
		ImgResolution: config.Pose.ImgResolution,
		ScaleMode:     config.Pose.ScaleMode,
		RenderOutput:  !config.Pose.NoRenderOutput,
		TickPeriodMS:  config.TickPeriodMS,
	}
	return nil
}

func (p *PoseServer) Stats(sess *Session, resp *pipeline.Stats) error {
	if err := p.validateSession(*sess); err != nil {
		return err
	}

	*resp = p.s.Stats()
	return nil
}

func (p *PoseServer) Quit(sess *Session, resp *bool) error {
	if err := p.validateSession(*sess); err != nil {
		return err
	}

	*resp = true
	log.Warn("Received remote quit request, stopping pipeline...")
	p.s.RequestStop()
	return nil
}

func (p *PoseServer) Shutdown(sess *Session, resp *bool) error {
	if err := p.validateSession(*sess); err != nil {
		return err
	}

	*resp = true
	log.Warn("Received remote shutdown request...")
	defer func() {
		time.Sleep(time.Second * 1)
		p.interrupt <- SIGREMOTE
	}()
	return nil
}

func (p *PoseServer) validateSession(sess Session) error {
	if _, err := auth.ValidateToken(p.signingSecret, sess.Token); err != nil {
		return errors.New("user must be authenticated")
	}
	return nil
}

func validateAuth(auth string) ([]string, error) {
	if len(auth) == 0 {
		return nil, errors.New("cannot retrieve username and password from blank input")
	}

	// only the first separator splits, passwords may contain pipes
	split := strings.SplitN(auth, "|", 2)
	if len(split) <= 1 {
		return nil, errors.New("unable to correctly retrieve username and password from malformed input")
	}

	return split, nil
}
