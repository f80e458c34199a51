package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
)

var testRefs = domain.ReferenceMeta{
	0: {ChunkID: "c1", FileName: "/docs/lease.md", ContentType: domain.ContentTypeText},
}

func newBufferedCmd() (*cobra.Command, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	return cmd, buf
}

func TestPrintAnswer_FinalAnswerWithReferences(t *testing.T) {
	cmd, buf := newBufferedCmd()
	frames := frameStream(
		answer("Pets", testRefs),
		answer("Pets are allowed [ID:0]", testRefs),
	)

	require.NoError(t, printAnswer(cmd, frames, false))

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "Pets are allowed [ID:0]"))
	assert.Contains(t, out, "References:\n[ID:0] /docs/lease.md (text)\n")
}

func TestPrintAnswer_LivePrintsDeltas(t *testing.T) {
	cmd, buf := newBufferedCmd()
	frames := frameStream(
		answer("Pets", testRefs),
		answer("Pets are allowed", testRefs),
	)

	require.NoError(t, printAnswer(cmd, frames, true))

	assert.True(t, strings.HasPrefix(buf.String(), "Pets are allowed\n"))
}

func TestPrintAnswer_ErrorFrame(t *testing.T) {
	cmd, _ := newBufferedCmd()
	frames := frameStream(domain.ChatFrame{
		Code:    domain.FrameCodeError,
		Message: "error",
		Data:    &domain.FramePayload{Answer: "**ERROR**: model offline"},
	})

	err := printAnswer(cmd, frames, true)

	require.Error(t, err)
	assert.Equal(t, "model offline", err.Error())
}

func TestPrintAnswer_NoFrames(t *testing.T) {
	cmd, _ := newBufferedCmd()

	err := printAnswer(cmd, frameStream(), false)

	assert.EqualError(t, err, "no answer received")
}

func TestWriteFrames_OneFramePerLine(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, writeFrames(&buf, frameStream(answer("Hi", nil))))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var frame domain.ChatFrame
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &frame))
	require.NotNil(t, frame.Data)
	assert.Equal(t, "Hi", frame.Data.Answer)
	assert.JSONEq(t, `{"code":0,"message":"success","data":{}}`, lines[1])
}

func TestAskCmd_Streams(t *testing.T) {
	chat := &fakeChat{frames: []domain.ChatFrame{answer("Yes [ID:0]", testRefs)}}
	withServices(t, &Services{Chat: chat})

	out, err := execute(t, "ask", "are", "pets", "allowed?")

	require.NoError(t, err)
	assert.Contains(t, out, "Yes [ID:0]")
	assert.Contains(t, out, "/docs/lease.md")
	require.Len(t, chat.history, 1)
	assert.Equal(t, domain.RoleUser, chat.history[0].Role)
	assert.Equal(t, "are pets allowed?", chat.history[0].Content)
}

func TestAskCmd_JSON(t *testing.T) {
	withServices(t, &Services{Chat: &fakeChat{frames: []domain.ChatFrame{answer("Yes", nil)}}})

	out, err := execute(t, "ask", "--json", "question")

	require.NoError(t, err)
	assert.Contains(t, out, `"answer":"Yes"`)
	assert.Contains(t, out, `"data":{}`)
}

func TestAskCmd_NoChatModel(t *testing.T) {
	withServices(t, &Services{})

	_, err := execute(t, "ask", "question")

	assert.ErrorIs(t, err, errNoChatModel)
}

func TestAskCmd_BlankQuestion(t *testing.T) {
	_, err := execute(t, "ask", "   ")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
