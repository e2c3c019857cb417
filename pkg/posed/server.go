package posed

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/posedaemon/posed/pkg/configdef"
	"github.com/posedaemon/posed/pkg/database"
	"github.com/posedaemon/posed/pkg/database/repos"
	"github.com/posedaemon/posed/pkg/log"
	"github.com/posedaemon/posed/pkg/pipeline"
	"github.com/posedaemon/posed/pkg/pose"
	"github.com/posedaemon/posed/pkg/posed/process"
	"github.com/posedaemon/posed/pkg/rtsp"
	"github.com/posedaemon/posed/pkg/video"
	"github.com/spf13/afero"
	"github.com/tauraamui/xerror"
	"gorm.io/gorm"
)

var fs = afero.NewOsFs()

// Server wires the configured stream, pose engine and sinks into one
// running pipeline and owns their shutdown order.
type Server struct {
	mu            sync.Mutex
	stopRequested bool

	config       configdef.Values
	backend      video.Backend
	conn         video.Connection
	estimator    pose.Estimator
	controller   *pipeline.Controller
	proc         process.Process
	imageSink    *pipeline.ImageSink
	keypointOut  io.Closer
	db           *gorm.DB
	done         chan interface{}
	shutdownDone chan interface{}
}

func NewServer(resolver configdef.Resolver, backend video.Backend) (*Server, error) {
	config, err := resolver.Resolve()
	if err != nil {
		return nil, err
	}

	if config.Stream.MockCapturer {
		backend = video.Mock()
	}

	return &Server{
		config:       config,
		backend:      backend,
		done:         make(chan interface{}),
		shutdownDone: make(chan interface{}),
	}, nil
}

func (s *Server) Connect() error {
	return s.connect(context.Background())
}

func (s *Server) ConnectWithCancel(cancel context.Context) error {
	return s.connect(cancel)
}

func (s *Server) connect(cancel context.Context) error {
	stream := s.config.Stream
	log.Info("Connecting to stream: [%s]...", stream.Title)

	if strings.HasPrefix(stream.Address, "rtsp://") {
		probe, err := rtsp.NewProbe(stream.Address)
		if err != nil {
			return xerror.Errorf("invalid stream address [%s]: %w", stream.Title, err)
		}
		log.Debug("Probing RTSP endpoint %s before opening capture", probe.Addr())
		if err := probe.Check(cancel); err != nil {
			return xerror.Errorf("stream [%s] failed RTSP preflight check: %w", stream.Title, err)
		}
	}

	conn, err := video.ConnectWithCancel(cancel, stream.Address, s.backend)
	if err != nil {
		return xerror.Errorf("unable to connect to stream [%s]: %w", stream.Title, err)
	}

	log.Info("Connected successfully to stream: [%s]", stream.Title)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = conn
	return nil
}

// SetupPipeline builds the estimator, engine, sinks and controller from
// the loaded config. Must be called after Connect.
func (s *Server) SetupPipeline() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return xerror.New("cannot setup pipeline before stream is connected")
	}

	estimator, err := pose.ResolveEstimator(os.Getenv("POSED_POSE_BACKEND"), s.config.Pose)
	if err != nil {
		return err
	}
	s.estimator = estimator

	engine := pose.NewEngine(pose.EngineSettings{
		QueueSize: s.config.EngineQueueSize,
		Estimator: estimator,
		Renderer:  pose.NewRenderer(s.backend, s.config.Pose),
	})

	sinks, err := s.setupSinks()
	if err != nil {
		return err
	}

	source := pipeline.NewFrameSource(s.config.Stream.Title, s.backend, s.conn)
	s.controller = pipeline.NewController(source, engine, pipeline.NewRouter(sinks...))
	s.proc = process.NewPipelineProcess(
		s.config.Stream.Title,
		s.controller,
		time.Duration(s.config.TickPeriodMS)*time.Millisecond,
	)

	// a remote quit may have landed while the pipeline was still being
	// wired up, carry it over so the stop is not lost
	if s.stopRequested {
		s.controller.RequestStop()
	}

	return nil
}

func (s *Server) setupSinks() ([]pipeline.Sink, error) {
	stream := s.config.Stream
	parts := pose.COCOBodyParts()

	writer := s.backend.NewWriter(
		filepath.Join(stream.PersistLoc, stream.Title+"_annotated.mp4"),
		stream.FPS,
	)
	if stream.MockWriter {
		writer = video.Mock().NewWriter("", stream.FPS)
	}
	s.imageSink = pipeline.NewImageSink(writer)

	keypointFile, err := fs.OpenFile(
		filepath.Join(stream.PersistLoc, stream.Title+"_keypoints.jsonl"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666,
	)
	if err != nil {
		return nil, xerror.Errorf("unable to open keypoint egress stream: %w", err)
	}
	s.keypointOut = keypointFile

	sinks := []pipeline.Sink{
		s.imageSink,
		pipeline.NewKeypointSink(parts, keypointFile),
	}

	if s.config.PersistEvents {
		db, err := database.Connect()
		if err != nil {
			return nil, xerror.Errorf("unable to connect to DB, try running the setup: %w", err)
		}
		s.db = db
		sinks = append(sinks, pipeline.NewEventSink(stream.Title, parts, &repos.PoseEventRepository{DB: db}))
	}

	return sinks, nil
}

// Run starts the pipeline process and reports natural completion (end
// of stream, engine failure) through Done.
func (s *Server) Run() {
	s.proc.Setup().Start()
	go func() {
		s.proc.Wait()
		close(s.done)
	}()
}

// Done closes when the pipeline stopped of its own accord.
func (s *Server) Done() <-chan interface{} {
	return s.done
}

// RequestStop asks the running pipeline to stop at the next tick
// boundary. Safe to call from the RPC goroutine at any point, even
// before the pipeline has been set up: the request is latched and
// honoured once the pipeline starts.
func (s *Server) RequestStop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopRequested = true
	if s.controller != nil {
		s.controller.RequestStop()
	}
}

func (s *Server) Config() configdef.Values {
	return s.config
}

func (s *Server) Stats() pipeline.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.controller == nil {
		return pipeline.Stats{State: pipeline.Idle.String()}
	}
	return s.controller.Stats()
}

func (s *Server) Shutdown() chan interface{} {
	go s.shutdown()
	return s.shutdownDone
}

func (s *Server) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc != nil {
		s.proc.Stop()
		s.proc.Wait()
	}

	if s.imageSink != nil {
		if err := s.imageSink.Close(); err != nil {
			log.Error("unable to close annotated image stream: %s", err.Error())
		}
	}

	if s.keypointOut != nil {
		if err := s.keypointOut.Close(); err != nil {
			log.Error("unable to close keypoint stream: %s", err.Error())
		}
	}

	if s.estimator != nil {
		if err := s.estimator.Close(); err != nil {
			log.Error("unable to close pose estimator: %s", err.Error())
		}
	}

	if s.conn != nil {
		log.Warn("Closing stream connection: [%s]...", s.config.Stream.Title)
		if err := s.conn.Close(); err != nil {
			log.Error("unable to close stream connection: %s", err.Error())
		}
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			sqlDB.Close() //nolint
		}
	}

	close(s.shutdownDone)
}
