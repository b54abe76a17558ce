package audiocapture

import "time"

// ActivityDetector detects speech in audio by frame energy. It works on
// sample positions, so the result for a given buffer never depends on when
// it is evaluated.
type ActivityDetector struct {
	Threshold float64       // frame RMS above which a frame is voiced
	Frame     time.Duration // analysis frame length
	MinVoiced time.Duration // voiced time needed to count as speech
}

// NewActivityDetector creates a detector with the given threshold. A
// threshold of zero or less treats every non-empty buffer as speech.
func NewActivityDetector(threshold float64) *ActivityDetector {
	return &ActivityDetector{
		Threshold: threshold,
		Frame:     30 * time.Millisecond,
		MinVoiced: 150 * time.Millisecond,
	}
}

// Voiced returns the total length of frames in samples whose level reaches
// the threshold.
func (d *ActivityDetector) Voiced(samples []float32, sampleRate int) time.Duration {
	if len(samples) == 0 || sampleRate <= 0 {
		return 0
	}
	frame := int(int64(sampleRate) * int64(d.Frame) / int64(time.Second))
	if frame <= 0 {
		frame = len(samples)
	}

	voiced := 0
	for start := 0; start < len(samples); start += frame {
		end := min(start+frame, len(samples))
		if RMS(samples[start:end]) >= d.Threshold {
			voiced += end - start
		}
	}
	return time.Duration(voiced) * time.Second / time.Duration(sampleRate)
}

// HasSpeech reports whether samples hold at least MinVoiced of voiced audio.
func (d *ActivityDetector) HasSpeech(samples []float32, sampleRate int) bool {
	if d.Threshold <= 0 {
		return len(samples) > 0
	}
	need := min(d.MinVoiced, time.Duration(len(samples))*time.Second/time.Duration(max(sampleRate, 1)))
	voiced := d.Voiced(samples, sampleRate)
	return voiced > 0 && voiced >= need
}
