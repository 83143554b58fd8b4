package tesseract

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"k21/internal/services"
)

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t800\t600\t-1\t\n" +
	"4\t1\t1\t1\t1\t0\t10\t10\t200\t20\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t10\t10\t60\t20\t96.5\tHello\n" +
	"5\t1\t1\t1\t1\t2\t80\t10\t70\t20\t91.5\tworld\n" +
	"5\t1\t1\t1\t2\t1\t10\t40\t90\t20\t88\tsecond\n" +
	"5\t1\t1\t1\t2\t2\t110\t40\t10\t20\t-1\t \n" +
	"5\t1\t2\t1\t1\t1\t10\t80\t50\t20\t92\tfooter\n"

type fakeExecutor struct {
	output  []byte
	err     error
	block   bool
	binary  string
	args    []string
	stdin   []byte
	callCnt int
}

func (f *fakeExecutor) Run(ctx context.Context, binary string, args []string, stdin []byte) ([]byte, error) {
	f.callCnt++
	f.binary = binary
	f.args = append([]string(nil), args...)
	f.stdin = append([]byte(nil), stdin...)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.output, f.err
}

func intPtr(v int) *int { return &v }

func TestBuildArgs(t *testing.T) {
	got := BuildArgs(Options{Language: "eng+deu", DPI: intPtr(300), PSM: intPtr(6), OEM: intPtr(1)})
	want := []string{"stdin", "stdout", "-l", "eng+deu", "--dpi", "300", "--psm", "6", "--oem", "1", "tsv"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("args = %v, want %v", got, want)
	}
	if got := BuildArgs(Options{}); !reflect.DeepEqual(got, []string{"stdin", "stdout", "tsv"}) {
		t.Fatalf("bare args = %v", got)
	}
}

func TestParseTSVRebuildsLines(t *testing.T) {
	result, err := ParseTSV([]byte(sampleTSV))
	if err != nil {
		t.Fatalf("ParseTSV: %v", err)
	}
	if result.Text != "Hello world\nsecond\nfooter" {
		t.Fatalf("text = %q", result.Text)
	}
	if len(result.Words) != 4 {
		t.Fatalf("words = %d, want 4", len(result.Words))
	}
	if w := result.Words[1]; w.Text != "world" || w.Left != 80 || w.Width != 70 {
		t.Fatalf("unexpected word: %+v", w)
	}
	want := (96.5 + 91.5 + 88 + 92) / 4 / 100
	if diff := result.Confidence - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("confidence = %v, want %v", result.Confidence, want)
	}
}

func TestParseTSVRejectsGarbage(t *testing.T) {
	if _, err := ParseTSV([]byte("not a tsv")); err == nil {
		t.Fatal("expected header error")
	}
	bad := "level\tpage_num\n5\t1\n"
	if _, err := ParseTSV([]byte(bad)); err == nil {
		t.Fatal("expected column count error")
	}
}

func TestParseTSVEmptyPage(t *testing.T) {
	result, err := ParseTSV([]byte("level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n"))
	if err != nil {
		t.Fatalf("ParseTSV: %v", err)
	}
	if result.Text != "" || result.Confidence != 0 || len(result.Words) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestRecognizeSendsImageOnStdin(t *testing.T) {
	exec := &fakeExecutor{output: []byte(sampleTSV)}
	client, err := New("tesseract", WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := client.Recognize(context.Background(), []byte("png-bytes"), Options{Language: "eng"})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if exec.binary != "tesseract" || string(exec.stdin) != "png-bytes" {
		t.Fatalf("unexpected invocation: %s stdin=%q", exec.binary, exec.stdin)
	}
	if !strings.HasPrefix(result.Text, "Hello world") {
		t.Fatalf("text = %q", result.Text)
	}
}

func TestRecognizeClassifiesFailures(t *testing.T) {
	client, _ := New("tesseract", WithExecutor(&fakeExecutor{err: errors.New("exit status 1")}))
	_, err := client.Recognize(context.Background(), []byte("x"), Options{})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("err = %v, want ErrExternalTool", err)
	}

	slow, _ := New("tesseract", WithExecutor(&fakeExecutor{block: true}), WithTimeout(20*time.Millisecond))
	_, err = slow.Recognize(context.Background(), []byte("x"), Options{})
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = slow.Recognize(ctx, []byte("x"), Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	if _, err := client.Recognize(context.Background(), nil, Options{}); !errors.Is(err, services.ErrFrameProcess) {
		t.Fatalf("empty image err = %v", err)
	}
	if _, err := New("  "); err == nil {
		t.Fatal("expected error for blank binary")
	}
}
