package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jmylchreest/flvdemux/fixer"
	"github.com/jmylchreest/flvdemux/flv"
	"github.com/spf13/cobra"
)

var (
	chunkSize     int
	startTime     int64
	discontinuity bool
)

var demuxCmd = &cobra.Command{
	Use:   "demux [file]",
	Short: "Demux an FLV stream and print a JSON track summary",
	Long: `demux reads an FLV byte stream from a file (or "-" for stdin) in
fixed-size chunks, feeding each chunk to the flvdemux core exactly as a
real streaming caller would, then prints a JSON summary of the resulting
video, audio, and metadata tracks.`,
	Args: cobra.ExactArgs(1),
	RunE: runDemux,
}

func init() {
	demuxCmd.Flags().IntVar(&chunkSize, "chunk-size", 64*1024, "bytes read per Demux call")
	demuxCmd.Flags().Int64Var(&startTime, "start-time", 0, "base timestamp handed to the fixer")
	demuxCmd.Flags().BoolVar(&discontinuity, "discontinuity", false, "mark the first chunk as a discontinuity")
	rootCmd.AddCommand(demuxCmd)
}

type trackSummary struct {
	Video    videoSummary    `json:"video"`
	Audio    audioSummary    `json:"audio"`
	Metadata metadataSummary `json:"metadata"`
}

type videoSummary struct {
	Present      bool   `json:"present"`
	Codec        string `json:"codec"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	FpsNum       int    `json:"fpsNum"`
	FpsDen       int    `json:"fpsDen"`
	SampleCount  int    `json:"sampleCount"`
	LastGopID    uint32 `json:"lastGopId"`
	WarningCount int    `json:"warningCount"`
}

type audioSummary struct {
	Present      bool   `json:"present"`
	Codec        string `json:"codec"`
	SampleRate   int    `json:"sampleRate"`
	ChannelCount int    `json:"channelCount"`
	SampleCount  int    `json:"sampleCount"`
	WarningCount int    `json:"warningCount"`
}

type metadataSummary struct {
	ScriptSampleCount int `json:"scriptSampleCount"`
	SeiSampleCount    int `json:"seiSampleCount"`
}

func runDemux(_ *cobra.Command, args []string) error {
	r, closeFn, err := openInput(args[0])
	if err != nil {
		return err
	}
	defer closeFn()

	d := flv.NewDemuxer(flv.DemuxerOptions{Logger: logger})
	f := &fixer.TimestampFixer{Logger: logger}

	buf := make([]byte, chunkSize)
	first := true
	var summary trackSummary

	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			disc := first && discontinuity
			if err := d.DemuxAndFix(f, buf[:n], startTime, disc, true); err != nil {
				return fmt.Errorf("demux: %w", err)
			}
			first = false

			summary.Video.SampleCount += len(d.Video.Samples)
			summary.Audio.SampleCount += len(d.Audio.Samples)
			summary.Metadata.ScriptSampleCount += len(d.Metadata.FlvScriptSamples)
			summary.Metadata.SeiSampleCount += len(d.Metadata.SeiSamples)
			if len(d.Video.Samples) > 0 {
				summary.Video.LastGopID = d.Video.Samples[len(d.Video.Samples)-1].GopID
			}
			summary.Video.WarningCount += len(d.Video.Warnings)
			summary.Audio.WarningCount += len(d.Audio.Warnings)

			for _, w := range d.Video.Warnings {
				logger.Warn("video warning", slog.String("warning", w))
			}
			for _, w := range d.Audio.Warnings {
				logger.Warn("audio warning", slog.String("warning", w))
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("read input: %w", readErr)
		}
	}

	summary.Video.Present = d.Video.Present
	summary.Video.Codec = d.Video.Codec.String()
	summary.Video.Width = d.Video.Width
	summary.Video.Height = d.Video.Height
	summary.Video.FpsNum = d.Video.FpsNum
	summary.Video.FpsDen = d.Video.FpsDen

	summary.Audio.Present = d.Audio.Present
	summary.Audio.Codec = d.Audio.Codec.String()
	summary.Audio.SampleRate = d.Audio.SampleRate
	summary.Audio.ChannelCount = d.Audio.ChannelCount

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

func openInput(path string) (io.Reader, func() error, error) {
	if path == "-" {
		return os.Stdin, func() error { return nil }, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, f.Close, nil
}
