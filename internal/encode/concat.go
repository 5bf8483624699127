package encode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"vidforge/internal/compose"
	"vidforge/internal/tools"
)

// WriteConcatList writes an ffmpeg concat demuxer list. repeat is the
// number of extra passes over the whole segment list, used to loop the
// visuals under longer audio. Each segment path must already exist.
func WriteConcatList(concatFile string, segments []string, repeat int) error {
	var missing []string
	for _, seg := range segments {
		if _, err := os.Stat(seg); os.IsNotExist(err) {
			missing = append(missing, seg)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %d segment file(s):\n  %s", len(missing), strings.Join(missing, "\n  "))
	}

	f, err := os.Create(concatFile)
	if err != nil {
		return fmt.Errorf("create concat list: %w", err)
	}
	defer f.Close()

	for pass := 0; pass <= repeat; pass++ {
		for _, seg := range segments {
			abs, err := filepath.Abs(seg)
			if err != nil {
				abs = seg
			}
			// Escape single quotes in paths for the concat file format.
			escaped := strings.ReplaceAll(abs, "'", "'\\''")
			fmt.Fprintf(f, "file '%s'\n", escaped)
		}
	}
	return nil
}

// Concat stitches segments into outputPath with the concat demuxer. A
// single segment with no looping is used directly. Stream copy is tried
// first; when the segments disagree on parameters it re-encodes with
// the resolved codec settings.
func (e *Encoder) Concat(ctx context.Context, segments []string, repeat int, outputPath string) (string, error) {
	if len(segments) == 0 {
		return "", fmt.Errorf("no segments to concatenate")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", fmt.Errorf("prepare output dir: %w", err)
	}
	if len(segments) == 1 && repeat == 0 {
		if err := os.Rename(segments[0], outputPath); err != nil {
			return "", fmt.Errorf("move single segment: %w", err)
		}
		return "single", nil
	}

	concatFile := filepath.Join(e.WorkDir, "concat.txt")
	if err := WriteConcatList(concatFile, segments, repeat); err != nil {
		return "", err
	}

	streamArgs := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", concatFile,
		"-c", "copy",
		outputPath,
	}
	if _, err := e.Runner.Run(ctx, e.FFmpeg, streamArgs, tools.RunOptions{}); err == nil {
		return "stream_copy", nil
	}
	if e.Log != nil {
		e.Log.Printf("concat stream copy failed, re-encoding")
	}

	if _, err := e.Runner.Run(ctx, e.FFmpeg, e.reencodeArgs(concatFile, outputPath), tools.RunOptions{}); err != nil {
		return "", fmt.Errorf("concat re-encode failed: %w", err)
	}
	return "re-encode", nil
}

func (e *Encoder) reencodeArgs(concatFile, outputPath string) []string {
	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", concatFile,
	}
	args = append(args, e.videoArgs()...)
	args = append(args,
		"-c:a", e.Enc.AudioCodec,
		"-b:a", e.Enc.AudioBitrate,
	)
	if e.Enc.SampleRate > 0 {
		args = append(args, "-ar", fmt.Sprintf("%d", e.Enc.SampleRate))
	}
	if e.Enc.Channels > 0 {
		args = append(args, "-ac", fmt.Sprintf("%d", e.Enc.Channels))
	}
	return append(args, outputPath)
}

// MuxAudio lays the soundtrack under the stitched video without
// re-encoding the video stream, trimming to the final duration.
func (e *Encoder) MuxAudio(ctx context.Context, videoPath, audioPath, outputPath string, duration float64) error {
	if audioPath == "" {
		return os.Rename(videoPath, outputPath)
	}
	args := []string{
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v",
		"-map", "1:a",
		"-c:v", "copy",
		"-c:a", e.Enc.AudioCodec,
		"-b:a", e.Enc.AudioBitrate,
		"-t", fmt.Sprintf("%.3f", duration),
		outputPath,
	}
	_, err := e.Runner.Run(ctx, e.FFmpeg, args, tools.RunOptions{})
	return err
}

// Encode runs the full pipeline: per-unit segments, concat, audio mux.
// It returns the final output path.
func (e *Encoder) Encode(ctx context.Context, tl compose.Timeline, outputPath string) (string, error) {
	segments, err := e.EncodeUnits(ctx, tl)
	if err != nil {
		return "", err
	}

	video := filepath.Join(e.WorkDir, "video.mp4")
	if tl.Audio == "" {
		video = outputPath
	}
	if _, err := e.Concat(ctx, segments, tl.Loops, video); err != nil {
		return "", err
	}
	if tl.Audio == "" {
		return outputPath, nil
	}
	if err := e.MuxAudio(ctx, video, tl.Audio, outputPath, tl.Duration); err != nil {
		return "", fmt.Errorf("mux audio: %w", err)
	}
	return outputPath, nil
}
