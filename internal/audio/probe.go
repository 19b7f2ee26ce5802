package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/tcolgate/mp3"
)

// ErrUnsupportedFormat is returned for containers Probe cannot time.
var ErrUnsupportedFormat = errors.New("audio: unsupported format")

// Info describes a probed resource.
type Info struct {
	Format   string
	Duration time.Duration
	Title    string
	Artist   string
	Album    string
	Genre    string
}

// Probe identifies the container in r and measures its duration. name is
// used as a hint when the content carries no tags.
func Probe(r io.ReadSeeker, name string) (Info, error) {
	format := sniff(r, name)
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return Info{}, err
	}

	info := Info{Format: format}
	if m, err := tag.ReadFrom(r); err == nil {
		info.Title = m.Title()
		info.Artist = m.Artist()
		info.Album = m.Album()
		info.Genre = m.Genre()
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return Info{}, err
	}

	var err error
	switch format {
	case "mp3":
		info.Duration, err = durationMP3(r)
	case "flac":
		info.Duration, err = durationFLAC(r)
	case "wav":
		info.Duration, err = durationWAV(r)
	default:
		return info, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	if err != nil {
		return info, fmt.Errorf("probe %s: %w", format, err)
	}
	if info.Duration <= 0 {
		return info, fmt.Errorf("probe %s: no audio frames", format)
	}
	return info, nil
}

// ProbeBytes is Probe over an in-memory resource.
func ProbeBytes(data []byte, name string) (Info, error) {
	return Probe(bytes.NewReader(data), name)
}

// sniff prefers tag identification, then RIFF magic, then the extension.
func sniff(r io.ReadSeeker, name string) string {
	if _, fileType, err := tag.Identify(r); err == nil {
		switch fileType {
		case tag.MP3:
			return "mp3"
		case tag.FLAC:
			return "flac"
		case tag.M4A, tag.M4B, tag.M4P, tag.ALAC:
			return "m4a"
		case tag.OGG:
			return "ogg"
		}
	}

	if _, err := r.Seek(0, io.SeekStart); err == nil {
		head := make([]byte, 12)
		if n, _ := io.ReadFull(r, head); n == 12 &&
			string(head[0:4]) == "RIFF" && string(head[8:12]) == "WAVE" {
			return "wav"
		}
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(stripQuery(name)), "."))
	return ext
}

func stripQuery(name string) string {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		return name[:i]
	}
	return name
}

// durationMP3 sums frame durations.
func durationMP3(r io.Reader) (time.Duration, error) {
	dec := mp3.NewDecoder(r)
	var total time.Duration
	var skipped int
	frames := 0
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) || frames > 0 {
				break
			}
			return 0, err
		}
		total += fr.Duration()
		frames++
	}
	return total, nil
}

// durationFLAC reads STREAMINFO.
func durationFLAC(r io.Reader) (time.Duration, error) {
	stream, err := flac.New(r)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	si := stream.Info
	if si.NSamples == 0 || si.SampleRate == 0 {
		return 0, errors.New("flac stream missing sample info")
	}
	secs := float64(si.NSamples) / float64(si.SampleRate)
	return time.Duration(secs * float64(time.Second)), nil
}

// durationWAV derives duration from the PCM chunk size.
func durationWAV(r io.ReadSeeker) (time.Duration, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return 0, errors.New("invalid wav file")
	}
	if dec.SampleRate == 0 || dec.BitDepth == 0 || dec.NumChans == 0 {
		return 0, errors.New("invalid wav header")
	}
	if err := dec.FwdToPCM(); err != nil {
		return 0, err
	}

	frameSize := int64(dec.BitDepth/8) * int64(dec.NumChans)
	if frameSize <= 0 {
		return 0, errors.New("invalid sample frame size")
	}
	frames := int64(dec.PCMSize) / frameSize
	secs := float64(frames) / float64(dec.SampleRate)
	return time.Duration(secs * float64(time.Second)), nil
}
