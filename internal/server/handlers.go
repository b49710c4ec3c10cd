package server

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/hyperjump/portfolio-agent/internal/audio"
	"github.com/hyperjump/portfolio-agent/internal/llm"
	"github.com/hyperjump/portfolio-agent/internal/models"
	"github.com/hyperjump/portfolio-agent/internal/workpool"
	"github.com/hyperjump/portfolio-agent/pkg/utils"
	"go.uber.org/zap"
)

// Messages shown to visitors.
const (
	msgInvalidRequest = "⚠️ Invalid request."
	msgMemoryError    = "⚠️ Error accessing memory banks."
	msgPDFTrouble     = "I had trouble reading that PDF. Please try a standard text-based PDF."
	msgMissingFile    = "Please upload the job description as a PDF in the \"file\" field."
	msgNotPDF         = "Only PDF files are supported."
	msgBusy           = "The analyzer is busy right now. Please try again in a moment."
	msgAnalysisFailed = "⚠️ Analysis failed. Please try again later."
	msgTTSFailed      = "Error: speech synthesis failed"
)

const (
	// maxJSONBody bounds /chat and /tts request bodies.
	maxJSONBody = 64 << 10
	// multipartOverhead is the room left for multipart boundaries and headers.
	multipartOverhead = 64 << 10
)

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, models.ChatResponse{Response: msgInvalidRequest, Action: models.ActionError})
		return
	}
	if err := req.Validate(s.config.Limits.MaxMessageChars); err != nil {
		respondJSON(w, http.StatusOK, models.ChatResponse{Response: err.Error(), Action: models.ActionWarning})
		return
	}
	ctx := r.Context()
	s.logger.Debug("chat request", zap.String("session_id", req.SessionID), zap.String("message", utils.Truncate(req.Message, 80)))

	res := s.deps.Retriever.Retrieve(ctx, req.Message, 0)
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: s.deps.Prompts.ChatPrompt(res.Context)},
		{Role: llm.RoleUser, Content: req.Message},
	}
	answer, err := s.deps.Chat.Complete(ctx, messages)
	if err != nil {
		s.logger.Error("chat completion failed", zap.String("session_id", req.SessionID), zap.Error(err))
		respondJSON(w, http.StatusOK, models.ChatResponse{Response: msgMemoryError, Action: models.ActionError})
		return
	}
	respondJSON(w, http.StatusOK, models.ChatResponse{Response: answer, Action: models.ActionReply})
}

func (s *Server) handleAnalyzeJD(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.config.Limits.MaxUploadBytes
	tooLarge := fmt.Sprintf("File too large (max %d MB).", maxBytes>>20)
	if r.ContentLength > maxBytes+multipartOverhead {
		respondAnalyze(w, http.StatusRequestEntityTooLarge, tooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)

	data, status, msg := readPDFPart(r, maxBytes)
	if status != http.StatusOK {
		if status == http.StatusRequestEntityTooLarge {
			msg = tooLarge
		}
		respondAnalyze(w, status, msg)
		return
	}

	ctx := r.Context()
	text, err := s.deps.Pool.Submit(ctx, func() (string, error) {
		return s.deps.PDF.PDFText(data)
	})
	switch {
	case errors.Is(err, workpool.ErrBusy):
		s.logger.Warn("pdf pool busy", zap.Int("waiting", s.deps.Pool.Waiting()))
		respondAnalyze(w, http.StatusServiceUnavailable, msgBusy)
		return
	case ctx.Err() != nil:
		// Nothing to answer: the client left, or the timeout middleware replies 504.
		s.logger.Info("jd analysis abandoned before extraction finished", zap.Error(ctx.Err()))
		return
	case err != nil:
		s.logger.Warn("pdf extraction failed", zap.Int("bytes", len(data)), zap.Error(err))
		respondAnalyze(w, http.StatusUnprocessableEntity, msgPDFTrouble)
		return
	}
	jd := strings.TrimSpace(text)
	if jd == "" {
		s.logger.Warn("pdf has no extractable text", zap.Int("bytes", len(data)))
		respondAnalyze(w, http.StatusUnprocessableEntity, msgPDFTrouble)
		return
	}
	jd = utils.Clip(jd, s.config.Limits.MaxJDChars)

	prompt := s.deps.Prompts.JDAnalysisPrompt(jd, s.deps.Resume)
	answer, err := s.deps.Chat.Complete(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	if err != nil {
		s.logger.Error("jd analysis failed", zap.Error(err))
		respondAnalyze(w, http.StatusBadGateway, msgAnalysisFailed)
		return
	}
	respondJSON(w, http.StatusOK, models.AnalyzeResponse{Response: answer})
}

// readPDFPart streams the multipart body and returns the bytes of the "file" part.
// On failure it returns the HTTP status and message to send.
func readPDFPart(r *http.Request, maxBytes int64) ([]byte, int, string) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, http.StatusBadRequest, msgMissingFile
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, http.StatusBadRequest, msgMissingFile
		}
		if err != nil {
			if isTooLarge(err) {
				return nil, http.StatusRequestEntityTooLarge, ""
			}
			return nil, http.StatusBadRequest, msgMissingFile
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}
		defer part.Close()

		if cl := part.Header.Get("Content-Length"); cl != "" {
			if n, err := strconv.ParseInt(cl, 10, 64); err == nil && n > maxBytes {
				return nil, http.StatusRequestEntityTooLarge, ""
			}
		}
		mediaType, _, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil || mediaType != "application/pdf" {
			return nil, http.StatusUnsupportedMediaType, msgNotPDF
		}
		data, err := io.ReadAll(io.LimitReader(part, maxBytes+1))
		if err != nil {
			if isTooLarge(err) {
				return nil, http.StatusRequestEntityTooLarge, ""
			}
			return nil, http.StatusBadRequest, msgMissingFile
		}
		if int64(len(data)) > maxBytes {
			return nil, http.StatusRequestEntityTooLarge, ""
		}
		return data, http.StatusOK, ""
	}
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	var req models.TTSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondText(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(s.config.Limits.MaxTTSChars); err != nil {
		respondText(w, http.StatusBadRequest, err.Error())
		return
	}

	speech, err := s.deps.Speech.Synthesize(r.Context(), req.Text)
	if err == nil && len(speech.Data) == 0 {
		err = llm.ErrNoAudio
	}
	if err != nil {
		s.logger.Error("speech synthesis failed", zap.Error(err))
		respondText(w, http.StatusBadGateway, msgTTSFailed)
		return
	}
	head := speech.Data
	if len(head) > 4 {
		head = head[:4]
	}
	s.logger.Debug("speech received",
		zap.String("head", hex.EncodeToString(head)),
		zap.Int("bytes", len(speech.Data)),
		zap.String("mime", speech.MIMEType))

	wav := audio.Normalize(speech.Data, audio.FormatFromMIME(speech.MIMEType, audio.DefaultFormat))
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(len(wav)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(wav)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondAnalyze(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, models.AnalyzeResponse{Response: message})
}

func respondText(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, message)
}
