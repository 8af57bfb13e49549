package main

import (
	"DrowsinessMonitor/internal/api/monitoring"
	"DrowsinessMonitor/internal/config"
	"DrowsinessMonitor/pkg/alert"
	"DrowsinessMonitor/pkg/drowsiness"
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// replay runs recorded landmark frames, one JSON object per line, through the
// analyzer and prints the status of every frame.
func main() {
	input := flag.String("input", "-", "JSON-lines frame file, - for stdin")
	configPath := flag.String("config", "", "YAML analyzer thresholds")
	delay := flag.Duration("delay", 0, "pause between frames, e.g. 33ms")
	verbose := flag.Bool("v", false, "print features for every frame")
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)

	cfg, err := config.LoadAnalyzerConfig(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load analyzer config: %v", err)
	}

	var r io.Reader = os.Stdin
	if *input != "-" {
		f, err := os.Open(*input)
		if err != nil {
			logger.Fatalf("Failed to open input: %v", err)
		}
		defer f.Close()
		r = f
	}

	if err := replay(r, os.Stdout, cfg, *delay, *verbose, logger); err != nil {
		logger.Fatal(err)
	}
}

func replay(r io.Reader, w io.Writer, cfg drowsiness.Config, delay time.Duration, verbose bool, logger *logrus.Logger) error {
	analyzer, err := drowsiness.New(cfg)
	if err != nil {
		return err
	}
	notifier := alert.New(logger)
	ctx := context.Background()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var frames, drowsy, alerts int
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var frame monitoring.FrameRequest
		if err := json.Unmarshal(raw, &frame); err != nil {
			fmt.Fprintf(w, "line %d: invalid frame: %v\n", line, err)
			continue
		}
		landmarks := frame.Landmarks
		if !frame.FaceDetected {
			landmarks = nil
		}

		result, err := analyzer.Analyze(landmarks)
		if err != nil {
			fmt.Fprintf(w, "line %d: %v\n", line, err)
			continue
		}
		frames++

		now := time.Now()
		fmt.Fprintf(w, "%s  %s", now.Format("15:04:05"), result.Status)
		if verbose && result.Features != nil {
			fmt.Fprintf(w, "  ear=%.3f mar=%.3f tilt=%.1f", result.Features.EAR, result.Features.MAR, result.Features.HeadTilt)
		}
		fmt.Fprintln(w)

		if result.Drowsy {
			drowsy++
			note, err := notifier.Notify(ctx, "replay", result.Status)
			if err != nil {
				return err
			}
			if note != nil {
				alerts++
				fmt.Fprintf(w, "%s  ALERT %s\n", now.Format("15:04:05"), note.Message)
			}
		}

		if delay > 0 {
			time.Sleep(delay)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read frames: %w", err)
	}

	fmt.Fprintf(w, "frames=%d drowsy=%d alerts=%d\n", frames, drowsy, alerts)
	return nil
}
