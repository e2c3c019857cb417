package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/posedaemon/posed/api"
	"github.com/posedaemon/posed/internal/config"
	"github.com/posedaemon/posed/pkg/configdef"
	db "github.com/posedaemon/posed/pkg/database"
	"github.com/posedaemon/posed/pkg/log"
	"github.com/posedaemon/posed/pkg/posed"
	"github.com/posedaemon/posed/pkg/video"
	"github.com/tacusci/logging/v2"
	"github.com/takama/daemon"
	"gocv.io/x/gocv"
)

const (
	name        = "posed"
	description = "Pose estimation daemon which streams annotated frames and keypoint records"
)

type Service struct {
	daemon.Daemon
}

// Setup creates the default config file and the local DB with a root
// admin user for the RPC API.
func (service *Service) Setup() (string, error) {
	log.Info("Setting up posed service...")

	err := config.DefaultCreator().Create()
	if err != nil {
		if !errors.Is(err, configdef.ErrConfigAlreadyExists) {
			return "", err
		}
		log.Error(err.Error())
	}

	err = db.Setup()
	if err != nil {
		if !errors.Is(err, db.ErrDBAlreadyExists) {
			return "", err
		}
		log.Error(err.Error())
	}

	return "Setup successful...", nil
}

func (service *Service) RemoveSetup() (string, error) {
	log.Info("Removing setup for posed service...")
	err := db.Destroy()
	if err != nil {
		log.Error("unable to delete database file: %s", err.Error())
	}

	return "Removing setup successful...", nil
}

func (service *Service) Manage() (string, error) {
	usage := "Usage: posed setup | remove-setup | install | remove | start | stop | status"

	if len(os.Args) > 1 {
		command := os.Args[1]
		switch command {
		case "setup":
			return service.Setup()
		case "remove-setup":
			return service.RemoveSetup()
		case "install":
			return service.Install()
		case "remove":
			return service.Remove()
		case "start":
			return service.Start()
		case "stop":
			return service.Stop()
		case "status":
			return service.Status()
		default:
			return usage, nil
		}
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	log.Info("Starting pose daemon...")

	server, err := posed.NewServer(config.DefaultResolver(), video.Resolve(os.Getenv("POSED_VIDEO_BACKEND")))
	if err != nil {
		log.Fatal(err.Error())
	}

	rpcServer, err := api.New(interrupt, server, api.Options{
		RPCListenPort: server.Config().RPCListenPort,
		SigningSecret: server.Config().Secret,
	})
	if err != nil {
		log.Error(err.Error())
	} else if err := api.StartRPC(rpcServer); err != nil {
		log.Error(err.Error())
	}

	ctx, cancelStartup := context.WithCancel(context.Background())
	go startupServer(ctx, server)

	select {
	case killSignal := <-interrupt:
		fmt.Print("\r")
		log.Error("Received signal: %s", killSignal)
	case <-server.Done():
		log.Info("Pipeline finished, shutting down...")
	}

	cancelStartup()
	log.Info("Shutting down server...")
	<-server.Shutdown()

	if rpcServer != nil {
		if err := api.ShutdownRPC(rpcServer); err != nil {
			log.Error(err.Error())
		}
	}

	var b bytes.Buffer
	gocv.MatProfile.Count()
	gocv.MatProfile.WriteTo(&b, 1)
	fmt.Print(b.String())

	return "Shutdown successful... BYE! 👋", nil
}

func startupServer(ctx context.Context, server *posed.Server) {
	if err := server.ConnectWithCancel(ctx); err != nil {
		log.Error(err.Error())
		return
	}
	if err := server.SetupPipeline(); err != nil {
		log.Error(err.Error())
		return
	}
	server.Run()
}

func init() {
	log.ConfigureFromEnv()
}

func main() {
	daemonType := daemon.SystemDaemon
	if runtime.GOOS == "darwin" {
		daemonType = daemon.UserAgent
	}

	srv, err := daemon.New(name, description, daemonType)
	if err != nil {
		logging.Error(err.Error()) //nolint
		os.Exit(1)
	}

	service := &Service{srv}
	status, err := service.Manage()
	if err != nil {
		logging.Error(err.Error()) //nolint
		os.Exit(1)
	}

	logging.Info(status) //nolint
}
