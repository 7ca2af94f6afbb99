package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"hash/fnv"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/haruni24/MojiNoYukue/compositor"
	"github.com/haruni24/MojiNoYukue/labels"
	"github.com/haruni24/MojiNoYukue/relay"
	"github.com/haruni24/MojiNoYukue/segmentation"
	"github.com/haruni24/MojiNoYukue/stage"
	"github.com/haruni24/MojiNoYukue/tracking"

	"gocv.io/x/gocv"
)

const (
	perfReportInterval = 15 * time.Second // Performance reporting interval
	maxPendingFrames   = 60               // Maximum buffered frames before dropping
)

var (
	// Command-line flags (overriding the config file)
	inputStream    = flag.String("input", "", "Camera index (\"0\",\"1\",...) or stream URL\n\t\tExample: -input=0 or -input=rtsp://192.168.1.100:554/ch1")
	configPath     = flag.String("config", "", "Path to JSON configuration file")
	backgroundPath = flag.String("background", "", "Background image composited behind the segmented person")
	tracksURL      = flag.String("tracks", "", "Tracker stream endpoint (ws:// or http:// for SSE)")
	relayURL       = flag.String("relay", "", "takeuchi relay WebSocket URL (optional)")
	maskIndex      = flag.Int("mask-index", -1, "Explicit foreground mask index (-1 = pick by labels)")
	debugMode      = flag.Bool("debug", false, "Enable debug logging to /tmp/mojinoyukue")
	headless       = flag.Bool("headless", false, "Run without a display window (stats only)")

	// Global debug logger instance
	globalDebugLogger *DebugLogger
)

// debugMsg is the global convenience function for unified debug logging
func debugMsg(component, message string) {
	if globalDebugLogger != nil {
		globalDebugLogger.debugMsg(component, message)
	} else {
		fmt.Printf("[%s] %s\n", component, message)
	}
}

// FrameData carries one captured frame through the pipeline
type FrameData struct {
	frame     gocv.Mat
	sequence  int64
	timestamp time.Time
}

// PipelineStats tracks pipeline throughput for the periodic report.
// Counters are atomic: capture and render live on different goroutines.
type PipelineStats struct {
	framesCaptured int64
	framesRendered int64
	framesDropped  int64
	segmentErrors  int64
	lastReport     time.Time // touched only by the render loop
}

func (s *PipelineStats) report(comp *compositor.Compositor, ingest *tracking.Ingest) float64 {
	captured := atomic.SwapInt64(&s.framesCaptured, 0)
	rendered := atomic.SwapInt64(&s.framesRendered, 0)
	dropped := atomic.SwapInt64(&s.framesDropped, 0)
	segErrs := atomic.SwapInt64(&s.segmentErrors, 0)
	elapsed := time.Since(s.lastReport)
	s.lastReport = time.Now()

	blended, fallbacks := comp.Stats()
	received, malformed := ingest.Counters()
	fps := float64(rendered) / elapsed.Seconds()
	debugMsg("PERF", fmt.Sprintf(
		"%.1f fps (captured=%d rendered=%d dropped=%d segErrs=%d) blend=%d fallback=%d tracks[%s recv=%d bad=%d]",
		fps, captured, rendered, dropped, segErrs, blended, fallbacks,
		ingest.Status(), received, malformed))
	return fps
}

// parseSource turns "0","1",... into a device index, everything else is
// treated as a path/URL.
func parseSource(src string) interface{} {
	if n, err := strconv.Atoi(src); err == nil {
		return n
	}
	return src
}

// hueForText derives a stable hue in [0,1) from the label text so the
// same word keeps its color across sessions and displays.
func hueForText(text string) float64 {
	h := fnv.New32a()
	h.Write([]byte(text))
	return float64(h.Sum32()%360) / 360
}

func main() {
	flag.Parse()

	config, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *inputStream != "" {
		config.Input = *inputStream
	}
	if *backgroundPath != "" {
		config.BackgroundPath = *backgroundPath
	}
	if *tracksURL != "" {
		config.TracksURL = *tracksURL
	}
	if *relayURL != "" {
		config.RelayURL = *relayURL
	}
	if *maskIndex >= 0 {
		config.Segmentation.MaskIndex = *maskIndex
	}

	globalDebugLogger = NewDebugLogger(*debugMode)
	defer globalDebugLogger.Stop()
	segmentation.SetDebugFunction(debugMsg)
	tracking.SetDebugFunction(debugMsg)
	relay.SetDebugFunction(debugMsg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Video source
	webcam, err := gocv.OpenVideoCapture(parseSource(config.Input))
	if err != nil {
		log.Fatalf("could not open video source %q: %v", config.Input, err)
	}
	defer webcam.Close()
	webcam.Set(gocv.VideoCaptureBufferSize, 1)
	webcam.Set(gocv.VideoCaptureFPS, float64(config.FrameRate))

	// Frame compositor with optional user background
	comp := compositor.New(compositor.Config{
		ForegroundScale: config.Foreground.Scale,
		BottomAnchor:    config.Foreground.BottomAnchor,
	})
	defer comp.Close()
	if config.BackgroundPath != "" {
		bg := gocv.IMRead(config.BackgroundPath, gocv.IMReadColor)
		if bg.Empty() {
			log.Fatalf("could not read background image %s", config.BackgroundPath)
		}
		if err := comp.SetBackground(bg); err != nil {
			log.Fatalf("background: %v", err)
		}
		bg.Close()
	}

	// Segmentation provider; without a model every frame takes the
	// passthrough path.
	var provider segmentation.Provider
	if config.Segmentation.ModelPath != "" {
		provider, err = segmentation.NewDNNProvider(
			config.Segmentation.ModelPath,
			config.Segmentation.LabelsPath,
			config.Segmentation.InputSize,
			config.Segmentation.PreferGPU,
		)
		if err != nil {
			log.Fatalf("segmentation: %v", err)
		}
		defer provider.Close()
		info := provider.Info()
		debugMsg("SEGMENT", fmt.Sprintf("inference on %s (%s), init took %v",
			info.Backend, info.Type, info.InitTime))
	} else {
		debugMsg("SEGMENT", "no model configured, running passthrough")
	}
	selector := segmentation.NewSelector()

	// Track ingest
	store := tracking.NewStore()
	var transport tracking.Transport
	if config.TracksKind == "sse" {
		transport = tracking.NewSSETransport(config.TracksURL)
	} else {
		transport = tracking.NewWSTransport(config.TracksURL)
	}
	ingest := tracking.NewIngest(store, transport)
	go ingest.Run(ctx)

	// Label slots, relay, stage
	slots := labels.NewSlots()
	hub := relay.NewHub()
	relayClient := relay.NewClient(config.RelayURL, hub)
	go relayClient.Run(ctx)

	canvasAdapter := stage.NewCanvasAdapter()
	stg := stage.New(stage.Config{
		Width:        config.StageWidth,
		Height:       config.StageHeight,
		FPS:          config.StageFPS,
		TextLifetime: time.Duration(config.TextLifetimeS * float64(time.Second)),
	}, store, slots, canvasAdapter)
	stg.SelectCamera(config.CameraIndex)
	go stg.Run(ctx)

	// Relayed text events from companion displays spawn floating text
	events, unsubscribe := hub.Subscribe()
	defer unsubscribe()
	go func() {
		for ev := range events {
			stg.SpawnText(ev.ID, ev.Text, ev.Hue, ev.YN)
		}
	}()

	// Label submissions arrive on stdin, one per line. Each submission
	// claims a slot and floats a copy toward the companion display.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			text := scanner.Text()
			if text == "" {
				continue
			}
			hue := hueForText(text)
			idx := slots.Submit(text, hue, time.Now())
			debugMsg("LABELS", fmt.Sprintf("submitted %q into slot %d", text, idx))
			relayClient.Send(relay.TextEvent{Text: text, Hue: hue, YN: 0.25})
		}
	}()

	// Signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		debugMsg("MAIN", fmt.Sprintf("received %v, shutting down", sig))
		cancel()
	}()

	// Capture pipeline
	frameChan := make(chan FrameData, maxPendingFrames)
	errorChan := make(chan error, 1)
	stats := &PipelineStats{lastReport: time.Now()}
	go captureFrames(ctx, webcam, frameChan, errorChan, stats)

	debugMsg("MAIN", fmt.Sprintf("pipeline up: input=%s tracks=%s (%s) relay=%s",
		config.Input, config.TracksURL, transport.Kind(), config.RelayURL))

	if err := renderFrames(ctx, config, frameChan, errorChan, provider, selector, comp, canvasAdapter, stats, ingest, relayClient); err != nil {
		log.Printf("pipeline stopped: %v", err)
	}
}

// captureFrames reads frames as fast as the camera provides them and
// drops when the pipeline is behind; a slow consumer must never back up
// the capture driver.
func captureFrames(ctx context.Context, webcam *gocv.VideoCapture, frameChan chan<- FrameData, errorChan chan<- error, stats *PipelineStats) {
	sequence := int64(0)
	for ctx.Err() == nil {
		img := gocv.NewMat()
		if ok := webcam.Read(&img); !ok {
			img.Close()
			errorChan <- fmt.Errorf("failed to read frame from source")
			return
		}
		if img.Empty() {
			img.Close()
			continue
		}
		atomic.AddInt64(&stats.framesCaptured, 1)

		frameData := FrameData{frame: img, sequence: sequence, timestamp: time.Now()}
		select {
		case frameChan <- frameData:
			sequence++
		default:
			// Pipeline is behind; drop this frame and keep reading.
			img.Close()
			atomic.AddInt64(&stats.framesDropped, 1)
		}
	}
}

// renderFrames is the per-frame hot loop: segment, select, composite,
// overlay, present. Every external call is wrapped so a bad frame
// degrades to passthrough instead of killing the loop.
func renderFrames(ctx context.Context, config Config, frameChan <-chan FrameData, errorChan <-chan error,
	provider segmentation.Provider, selector *segmentation.Selector, comp *compositor.Compositor,
	canvasAdapter *stage.CanvasAdapter, stats *PipelineStats, ingest *tracking.Ingest,
	relayClient *relay.Client) error {

	var window *gocv.Window
	if !*headless {
		window = gocv.NewWindow("MojiNoYukue")
		defer window.Close()
	}

	canvas := gocv.NewMat()
	defer canvas.Close()

	perfTicker := time.NewTicker(perfReportInterval)
	defer perfTicker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errorChan:
			return err
		case <-perfTicker.C:
			fps := stats.report(comp, ingest)
			relayClient.SendStatus(map[string]interface{}{
				"fps":    fps,
				"tracks": ingest.Status().String(),
			})
		case frameData := <-frameChan:
			mask := segmentFrame(provider, selector, config, frameData, stats, start)
			if err := comp.Composite(&canvas, frameData.frame, mask); err != nil {
				// Input-not-ready: skip this frame, keep the loop alive.
				frameData.frame.Close()
				continue
			}
			frameData.frame.Close()

			canvasAdapter.Draw(&canvas)
			atomic.AddInt64(&stats.framesRendered, 1)

			if window != nil {
				window.IMShow(canvas)
				if window.WaitKey(1) == 27 { // ESC
					return nil
				}
			}
		}
	}
}

// segmentFrame runs inference defensively: any failure, or an absent
// provider, yields a nil mask and the compositor's passthrough path.
func segmentFrame(provider segmentation.Provider, selector *segmentation.Selector, config Config,
	frameData FrameData, stats *PipelineStats, start time.Time) *segmentation.Mask {

	if provider == nil {
		return nil
	}
	result, err := provider.Segment(frameData.frame, frameData.timestamp.Sub(start))
	if err != nil {
		atomic.AddInt64(&stats.segmentErrors, 1)
		return nil
	}
	if result == nil || len(result.Masks) == 0 {
		return nil
	}
	idx := selector.Pick(len(result.Masks), result.Labels, config.Segmentation.MaskIndex)
	return &result.Masks[idx]
}
