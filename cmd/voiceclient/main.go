// Command voiceclient posts a recorded question to a running service and
// prints a colored summary of the answer and its latency breakdown.
package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
)

type response struct {
	QueryID          string  `json:"query_id"`
	Transcript       string  `json:"transcript"`
	Response         string  `json:"response"`
	DetectedLanguage string  `json:"detected_language"`
	AudioBase64      *string `json:"audio_base64"`
	Model            string  `json:"model"`
	RacePath         string  `json:"race_path"`
	QueryClass       string  `json:"query_class"`
	ContextTier      string  `json:"context_tier"`
	PhoneticAccuracy float64 `json:"phonetic_accuracy"`
	InfoDensity      float64 `json:"info_density"`
	LatencyMs        int64   `json:"latency_ms"`
	Breakdown        struct {
		STTMs int64 `json:"stt_ms"`
		LLMMs int64 `json:"llm_ms"`
		TTSMs int64 `json:"tts_ms"`
	} `json:"breakdown"`
	Under3s bool   `json:"under_3s"`
	Error   string `json:"error"`
	Details string `json:"details"`
}

func main() {
	audioFile := flag.String("audio", "", "Path to the recorded question")
	server := flag.String("server", "http://localhost:8080", "Service base URL")
	language := flag.String("language", "en", "Language hint: en, ta or ml")
	district := flag.String("district", "coimbatore", "District id")
	out := flag.String("out", "", "Write the answer audio to this file")
	flag.Parse()

	red := color.New(color.FgRed, color.Bold)
	if *audioFile == "" {
		red.Fprintln(os.Stderr, "-audio is required")
		os.Exit(2)
	}

	body, contentType, err := form(*audioFile, *language, *district)
	if err != nil {
		red.Fprintf(os.Stderr, "Failed to build request: %v\n", err)
		os.Exit(1)
	}

	start := time.Now()
	resp, err := http.Post(*server+"/v1/voice-query", contentType, body)
	if err != nil {
		red.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	roundTrip := time.Since(start)

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		red.Fprintf(os.Stderr, "Bad response (%s): %v\n", resp.Status, err)
		os.Exit(1)
	}
	if resp.StatusCode != http.StatusOK {
		red.Printf("%s: %s\n", resp.Status, r.Error)
		if r.Details != "" {
			fmt.Println(color.HiBlackString(r.Details))
		}
		os.Exit(1)
	}

	summarize(r, roundTrip)

	if *out != "" && r.AudioBase64 != nil {
		audio, err := base64.StdEncoding.DecodeString(*r.AudioBase64)
		if err == nil {
			err = os.WriteFile(*out, audio, 0o644)
		}
		if err != nil {
			red.Fprintf(os.Stderr, "Failed to save audio: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(color.HiBlackString("audio saved to %s", *out))
	}
}

func summarize(r response, roundTrip time.Duration) {
	label := color.New(color.FgCyan, color.Bold).SprintFunc()
	dim := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("%s %s\n", label("Transcript:"), r.Transcript)
	fmt.Printf("%s %s\n", label("Answer:    "), color.GreenString(r.Response))
	fmt.Println()
	fmt.Printf("%s %s  %s %s  %s %s\n",
		label("lang"), r.DetectedLanguage,
		label("class"), r.QueryClass,
		label("context"), r.ContextTier)
	fmt.Printf("%s %s %s\n", label("model"), r.Model, dim("("+r.RacePath+")"))
	fmt.Printf("%s %.0f%%  %s %.2f\n", label("phonetic"), r.PhoneticAccuracy, label("density"), r.InfoDensity)

	budget := color.GreenString("under 3s")
	if !r.Under3s {
		budget = color.RedString("over budget")
	}
	fmt.Printf("%s %dms [stt %d / llm %d / tts %d] %s %s\n",
		label("latency"), r.LatencyMs,
		r.Breakdown.STTMs, r.Breakdown.LLMMs, r.Breakdown.TTSMs,
		budget, dim(fmt.Sprintf("round trip %s", roundTrip.Round(time.Millisecond))))
	if r.AudioBase64 == nil {
		color.Yellow("no audio (synthesis unavailable)")
	}
}

func form(path, language, district string) (io.Reader, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename=%q`, filepath.Base(path)))
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		h.Set("Content-Type", ct)
	}
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("language", language); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("district", district); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
