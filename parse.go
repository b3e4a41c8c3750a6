package streamform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	conditionjudge "github.com/mazrean/streamform/internal/condition_judge"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrTooManyParts is returned when the parts are more than MaxParts.
	ErrTooManyParts = errors.New("too many parts")
	// ErrTooManyHeaders is returned when the headers are more than MaxHeaders.
	ErrTooManyHeaders = errors.New("too many headers")
	// ErrTooLargeForm is returned when the form is too large for the parser to handle within the memory limit.
	ErrTooLargeForm = errors.New("too large form")
)

// Parse parses the multipart form from r.
func (p *Parser) Parse(r io.Reader) error {
	return p.ParseContext(context.Background(), r)
}

// ParseContext parses the multipart form from r, stopping at the next read from r once ctx is done.
func (p *Parser) ParseContext(ctx context.Context, r io.Reader) (err error) {
	hsc := newHookSatisfactionChecker(p.hookMap, &p.parserConfig)
	defer func() {
		deferErr := hsc.Close()
		// capture the error of Close()
		if deferErr != nil {
			if err != nil {
				err = errors.Join(err, deferErr)
			} else {
				err = deferErr
			}
		}
	}()

	err = p.parse(ctx, r, hsc.IConditionJudger)

	return
}

func (p *Parser) parse(ctx context.Context, r io.Reader, hsc conditionjudge.IConditionJudger[string, *normalParam, *abnormalParam]) error {
	if p.err != nil {
		return p.err
	}

	c := &partCollector{
		parser: p,
		judger: hsc,
	}
	err := newSession(r, c, &p.parserConfig).run(ctx, p.boundary)
	if err != nil {
		c.abort(err)
		return fmt.Errorf("failed to parse form: %w", err)
	}

	return nil
}

// partCollector runs hooks for registered parts and keeps the others in memory.
type partCollector struct {
	parser *Parser
	judger conditionjudge.IConditionJudger[string, *normalParam, *abnormalParam]

	// stream feeds the hook of the file being decoded.
	stream *hookStream
	// buf collects the file being decoded when it has no hook.
	buf *bytes.Buffer
}

func (c *partCollector) countPart(header Header) error {
	if c.parser.maxParts == 0 {
		return ErrTooManyParts
	}
	c.parser.maxParts--

	headers := uint(len(header.params))
	if c.parser.maxHeaders < headers {
		return ErrTooManyHeaders
	}
	c.parser.maxHeaders -= headers

	return nil
}

func (c *partCollector) HandleParameter(param Parameter) error {
	if err := c.countPart(param.Header); err != nil {
		return err
	}

	name := param.Name()
	content := []byte(param.Value())
	if c.judger.IsHookExist(name) {
		_, err := c.judger.HookEvent(name, &normalParam{
			r: bytes.NewReader(content),
			h: param.Header,
		})
		if err != nil {
			return fmt.Errorf("failed to run or set hook: %w", err)
		}
	} else if err := c.store(name, content, param.Header); err != nil {
		return err
	}

	if err := c.judger.KeyEvent(name); err != nil {
		return fmt.Errorf("failed to run satisfied hook: %w", err)
	}

	return nil
}

func (c *partCollector) HandleFileChunk(chunk FileChunk) error {
	if chunk.Index == 0 {
		if err := c.countPart(chunk.Header); err != nil {
			return err
		}

		name := chunk.Header.Name()
		if c.judger.IsHookExist(name) {
			c.stream = startHookStream(c.judger, name, chunk.Header)
		} else {
			buf, ok := bufPool.Get().(*bytes.Buffer)
			if !ok {
				buf = new(bytes.Buffer)
			}
			buf.Reset()
			c.buf = buf
		}
	}

	if c.stream != nil {
		return c.stream.write(chunk.Data)
	}

	if DataSize(c.buf.Len()+len(chunk.Data)) > c.parser.maxMemSize {
		return ErrTooLargeForm
	}
	c.buf.Write(chunk.Data)

	return nil
}

func (c *partCollector) HandleFileEnd(header Header) error {
	name := header.Name()
	if c.stream != nil {
		stream := c.stream
		c.stream = nil
		if err := stream.close(); err != nil {
			return err
		}
	} else if c.buf != nil {
		content := bytes.Clone(c.buf.Bytes())
		bufPool.Put(c.buf)
		c.buf = nil

		if err := c.store(name, content, header); err != nil {
			return err
		}
	}

	if err := c.judger.KeyEvent(name); err != nil {
		return fmt.Errorf("failed to run satisfied hook: %w", err)
	}

	return nil
}

func (c *partCollector) HandleStreamClosed() error {
	return nil
}

func (c *partCollector) store(name string, content []byte, header Header) error {
	size := DataSize(len(name) + len(content))
	if size > c.parser.maxMemSize {
		return ErrTooLargeForm
	}
	c.parser.maxMemSize -= size

	c.parser.valueMap[name] = append(c.parser.valueMap[name], Value{
		content: content,
		header:  header,
	})

	return nil
}

// abort stops the hook of an unfinished file.
func (c *partCollector) abort(err error) {
	if c.stream != nil {
		c.stream.abort(err)
		c.stream = nil
	}
	if c.buf != nil {
		bufPool.Put(c.buf)
		c.buf = nil
	}
}

// errHookReturned tells the decoder that the hook stopped reading before the end of the file.
var errHookReturned = errors.New("hook returned before the end of the part")

// hookStream runs a hook on its own goroutine and feeds it the chunks of one file through a pipe.
type hookStream struct {
	pw      *io.PipeWriter
	eg      errgroup.Group
	discard bool
}

func startHookStream(judger conditionjudge.IConditionJudger[string, *normalParam, *abnormalParam], name string, header Header) *hookStream {
	pr, pw := io.Pipe()
	s := &hookStream{pw: pw}
	s.eg.Go(func() error {
		_, err := judger.HookEvent(name, &normalParam{
			r: pr,
			h: header,
		})
		if err != nil {
			pr.CloseWithError(err)
			return fmt.Errorf("failed to run or set hook: %w", err)
		}

		pr.CloseWithError(errHookReturned)
		return nil
	})

	return s
}

func (s *hookStream) write(p []byte) error {
	if s.discard || len(p) == 0 {
		return nil
	}

	_, err := s.pw.Write(p)
	if errors.Is(err, errHookReturned) {
		s.discard = true
		return nil
	}
	if err != nil {
		if waitErr := s.eg.Wait(); waitErr != nil {
			return waitErr
		}
		return fmt.Errorf("failed to write to hook: %w", err)
	}

	return nil
}

func (s *hookStream) close() error {
	s.pw.Close()
	return s.eg.Wait()
}

func (s *hookStream) abort(err error) {
	s.pw.CloseWithError(err)
	_ = s.eg.Wait()
}

type hookSatisfactionChecker struct {
	conditionjudge.IConditionJudger[string, *normalParam, *abnormalParam]
	preProcessor *preProcessor
}

func newHookSatisfactionChecker(streamHooks map[string]streamHook, config *parserConfig) *hookSatisfactionChecker {
	judgeHooks := make(map[string]conditionjudge.Hook[string, *normalParam, *abnormalParam], len(streamHooks))
	for name, hook := range streamHooks {
		h := judgeHook(hook)
		judgeHooks[name] = &h
	}

	preProcess := &preProcessor{
		config: config,
	}

	return &hookSatisfactionChecker{
		IConditionJudger: conditionjudge.NewConditionJudger(judgeHooks, preProcess.run),
		preProcessor:     preProcess,
	}
}

func (wh *hookSatisfactionChecker) Close() error {
	return wh.preProcessor.Close()
}

type normalParam struct {
	r io.Reader
	h Header
}

type abnormalParam struct {
	content io.ReadCloser
	header  Header
}

// preProcessor spools parts whose hooks are still waiting for required parts,
// in memory up to the limits and in a temporary file beyond them.
type preProcessor struct {
	config   *parserConfig
	offset   int64
	file     *os.File
	filePath string
}

var bufPool = sync.Pool{
	New: func() any {
		return new(bytes.Buffer)
	},
}

func (pp *preProcessor) run(normalParam *normalParam) (*abnormalParam, error) {
	buf, ok := bufPool.Get().(*bytes.Buffer)
	if !ok {
		buf = new(bytes.Buffer)
	}
	buf.Reset()

	memLimit := min(pp.config.maxMemFileSize, pp.config.maxMemSize)
	n, err := io.CopyN(buf, normalParam.r, int64(memLimit)+1)
	if err != nil && !errors.Is(err, io.EOF) {
		bufPool.Put(buf)
		return nil, fmt.Errorf("failed to copy: %w", err)
	}

	if DataSize(n) <= memLimit {
		return pp.keepInMemory(buf, normalParam.h), nil
	}
	defer bufPool.Put(buf)

	content, err := pp.spill(io.MultiReader(buf, normalParam.r))
	if err != nil {
		return nil, err
	}

	return &abnormalParam{
		content: content,
		header:  normalParam.h,
	}, nil
}

func (pp *preProcessor) keepInMemory(buf *bytes.Buffer, header Header) *abnormalParam {
	size := DataSize(buf.Len())
	pp.config.maxMemSize -= size
	pp.config.maxMemFileSize -= size

	return &abnormalParam{
		content: customReadCloser{
			Reader: buf,
			closeFunc: func() error {
				bufPool.Put(buf)
				pp.config.maxMemSize += size
				pp.config.maxMemFileSize += size
				return nil
			},
		},
		header: header,
	}
}

// spill appends r to the temporary file and returns a reader over the appended section.
func (pp *preProcessor) spill(r io.Reader) (io.ReadCloser, error) {
	if pp.file == nil {
		f, err := os.CreateTemp("", "streamform-")
		if err != nil {
			return nil, fmt.Errorf("failed to create temp file: %w", err)
		}
		pp.file = f
		pp.filePath = f.Name()
	}

	size, err := io.Copy(pp.file, r)
	if err != nil {
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}

	content := io.NopCloser(io.NewSectionReader(pp.file, pp.offset, size))
	pp.offset += size

	return content, nil
}

func (pp *preProcessor) Close() error {
	if pp.file == nil {
		return nil
	}

	closeErr := pp.file.Close()
	removeErr := os.Remove(pp.filePath)
	if closeErr != nil || removeErr != nil {
		return errors.Join(closeErr, removeErr)
	}

	return nil
}

type judgeHook struct {
	fn           StreamHookFunc
	requireParts []string
}

func (jh judgeHook) NormalPath(normalParam *normalParam) error {
	return jh.fn(normalParam.r, normalParam.h)
}

func (jh judgeHook) AbnormalPath(abnormalParam *abnormalParam) error {
	defer abnormalParam.content.Close()

	return jh.fn(abnormalParam.content, abnormalParam.header)
}

func (jh judgeHook) Requirements() []string {
	return jh.requireParts
}

type customReadCloser struct {
	io.Reader
	closeFunc func() error
}

func (cc customReadCloser) Close() error {
	return cc.closeFunc()
}
