package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"docintel/internal/domain"
	"docintel/internal/jobs"
	"docintel/internal/logger"
	"docintel/internal/service"
	"docintel/internal/session"
	"docintel/internal/summarizer"
)

const streamErrorMarker = "\n[ERROR generating response]\n"

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":              "ok",
		"inference_in_flight": s.app.Gate.InFlight(),
		"inference_waiting":   s.app.Gate.Waiting(),
		"background_running":  s.app.Persist.Running(),
		"sessions":            s.app.Service.Sessions().Len(),
	})
}

func (s *Server) genSummary(c *gin.Context) {
	file, ok := s.formUpload(c, "file")
	if !ok {
		return
	}
	minWords, err1 := formInt(c, "min_words", summarizer.DefaultMinWords)
	maxWords, err2 := formInt(c, "max_words", summarizer.DefaultMaxWords)
	if err := errors.Join(err1, err2); err != nil {
		abort(c, err)
		return
	}
	res, err := s.app.Service.Summarize(c.Request.Context(), file, minWords, maxWords)
	if err != nil {
		abortWithJob(c, res.JobID, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) qnaOnDocs(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		abort(c, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}
	var pairs []service.QAPair
	if err := json.Unmarshal([]byte(c.PostForm("qna_items_str")), &pairs); err != nil {
		abort(c, fmt.Errorf("%w: invalid JSON for Q&A pairs: %v", domain.ErrInvalidInput, err))
		return
	}
	files, err := readUploads(form.File["files"])
	if err != nil {
		abort(c, err)
		return
	}
	res, err := s.app.Service.Answer(c.Request.Context(), files, pairs)
	if err != nil {
		abortWithJob(c, res.JobID, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) findObligations(c *gin.Context) {
	file, ok := s.formUpload(c, "file")
	if !ok {
		return
	}
	res, err := s.app.Service.FindObligations(c.Request.Context(), file)
	if err != nil {
		abortWithJob(c, res.JobID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"job_id": res.JobID, "obligations": res.Raw, "items": res.Items})
}

func (s *Server) findRisks(c *gin.Context) {
	file, ok := s.formUpload(c, "file")
	if !ok {
		return
	}
	res, err := s.app.Service.FindRisks(c.Request.Context(), file)
	if err != nil {
		abortWithJob(c, res.JobID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"job_id": res.JobID, "risks": res.Raw, "items": res.Items})
}

// ingest accepts uploaded files and, optionally, a server-side folder_path.
func (s *Server) ingest(c *gin.Context) {
	var files []service.Upload
	if form, err := c.MultipartForm(); err == nil {
		files, err = readUploads(form.File["files"])
		if err != nil {
			abort(c, err)
			return
		}
	}
	ctx := c.Request.Context()
	res, err := s.app.Service.Ingest(ctx, files)
	if err != nil {
		abortWithJob(c, res.JobID, err)
		return
	}
	if folder := strings.TrimSpace(c.PostForm("folder_path")); folder != "" {
		more, err := s.app.Service.IngestPaths(ctx, folder)
		if err != nil {
			abortWithJob(c, more.JobID, err)
			return
		}
		res.IngestedCount += more.IngestedCount
		res.Details = append(res.Details, more.Details...)
	}
	c.JSON(http.StatusOK, res)
}

// chatWithKB answers user_query from the knowledge base. With stream=true
// the answer is written as plain text while it is generated and the session
// id is sent in the X-Session-ID header.
func (s *Server) chatWithKB(c *gin.Context) {
	query := c.PostForm("user_query")
	if strings.TrimSpace(query) == "" {
		abort(c, fmt.Errorf("%w: user_query is required", domain.ErrInvalidInput))
		return
	}
	topK, err := queryInt(c, "top_k", 0)
	if err != nil {
		abort(c, err)
		return
	}
	sessionID := c.PostForm("session_id")
	ctx := c.Request.Context()

	if stream, _ := strconv.ParseBool(c.Query("stream")); !stream {
		res, err := s.app.Service.ChatWithKB(ctx, sessionID, query, topK)
		if err != nil {
			abortWithJob(c, res.JobID, err)
			return
		}
		c.JSON(http.StatusOK, res)
		return
	}

	if sessionID == "" {
		sessionID = session.NewID()
	}
	started := false
	res, err := s.app.Service.StreamChatWithKB(ctx, sessionID, query, topK, func(chunk string) error {
		if !started {
			started = true
			c.Header("Content-Type", "text/plain; charset=utf-8")
			c.Header("X-Session-ID", sessionID)
			c.Status(http.StatusOK)
		}
		if _, err := c.Writer.WriteString(chunk); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	})
	if err == nil {
		return
	}
	if !started {
		abortWithJob(c, res.JobID, err)
		return
	}
	logger.Error("Error during streaming for job %d: %v", res.JobID, err)
	_, _ = c.Writer.WriteString(streamErrorMarker)
}

// chatWithDocs continues a conversation about an optional uploaded file.
func (s *Server) chatWithDocs(c *gin.Context) {
	message := c.PostForm("new_message")
	if strings.TrimSpace(message) == "" {
		abort(c, fmt.Errorf("%w: new_message is required", domain.ErrInvalidInput))
		return
	}
	var file *service.Upload
	if fh, err := c.FormFile("file"); err == nil {
		up, err := readUpload(fh)
		if err != nil {
			abort(c, err)
			return
		}
		file = &up
	}
	res, err := s.app.Service.ChatWithDocs(c.Request.Context(), c.PostForm("session_id"), message, file)
	if err != nil {
		abortWithJob(c, res.JobID, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) deleteSession(c *gin.Context) {
	s.app.Service.Sessions().Delete(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (s *Server) sessionHistory(c *gin.Context) {
	id := c.Param("id")
	c.JSON(http.StatusOK, gin.H{"session_id": id, "history": s.app.Service.Sessions().History(id)})
}

func (s *Server) listJobs(c *gin.Context) {
	limit, err := queryInt(c, "limit", 100)
	if err != nil {
		abort(c, err)
		return
	}
	list, err := s.app.Service.Jobs(c.Request.Context(), jobs.Status(c.Query("status")), limit)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": list})
}

func (s *Server) formUpload(c *gin.Context, field string) (service.Upload, bool) {
	fh, err := c.FormFile(field)
	if err != nil {
		abort(c, fmt.Errorf("%w: no file uploaded in %q", domain.ErrInvalidInput, field))
		return service.Upload{}, false
	}
	up, err := readUpload(fh)
	if err != nil {
		abort(c, err)
		return service.Upload{}, false
	}
	return up, true
}

func readUploads(headers []*multipart.FileHeader) ([]service.Upload, error) {
	out := make([]service.Upload, 0, len(headers))
	for _, fh := range headers {
		up, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		out = append(out, up)
	}
	return out, nil
}

func readUpload(fh *multipart.FileHeader) (service.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return service.Upload{}, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return service.Upload{}, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	return service.Upload{Filename: fh.Filename, Data: data}, nil
}

func formInt(c *gin.Context, key string, def int) (int, error) {
	return parseInt(key, c.PostForm(key), def)
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	return parseInt(key, c.Query(key), def)
}

func parseInt(key, v string, def int) (int, error) {
	if strings.TrimSpace(v) == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, key)
	}
	return n, nil
}
