// Package contracts defines the data types shared between consoles, grep filters,
// sinks and the broker wire format.
package contracts

// ContentType classifies a chunk of console output by the stream it came from.
type ContentType int

const (
	// ContentNormal is regular process output (stdout).
	ContentNormal ContentType = iota
	// ContentError is error output (stderr).
	ContentError
	// ContentSystem is text produced by the host itself, e.g. exit status.
	ContentSystem
)

func (t ContentType) String() string {
	switch t {
	case ContentError:
		return "error"
	case ContentSystem:
		return "system"
	default:
		return "normal"
	}
}

// ParseContentType is the inverse of ContentType.String. Unknown names map to ContentNormal.
func ParseContentType(s string) ContentType {
	switch s {
	case "error", "stderr":
		return ContentError
	case "system":
		return ContentSystem
	default:
		return ContentNormal
	}
}

// OutputKind is the classification a derived console renders a forwarded line with.
type OutputKind int

const (
	OutputStdout OutputKind = iota
	OutputStderr
	OutputSystem
)

func (k OutputKind) String() string {
	switch k {
	case OutputStderr:
		return "stderr"
	case OutputSystem:
		return "system"
	default:
		return "stdout"
	}
}

// OutputKindFor maps an input content type to the output kind of a forwarded line.
func OutputKindFor(t ContentType) OutputKind {
	switch t {
	case ContentError:
		return OutputStderr
	case ContentSystem:
		return OutputSystem
	default:
		return OutputStdout
	}
}

// ContentTypeFor maps an output kind back to a content type, used when a grep
// console republishes its own output to chained consoles.
func ContentTypeFor(k OutputKind) ContentType {
	switch k {
	case OutputStderr:
		return ContentError
	case OutputSystem:
		return ContentSystem
	default:
		return ContentNormal
	}
}

// Chunk is an arbitrary piece of console output. Text may contain any number of
// newline-terminated lines and at most one trailing unterminated fragment.
type Chunk struct {
	// Producer identifies the writer. Incomplete lines are reassembled per producer.
	Producer string
	Text     string
	Type     ContentType
}

// RawChunk is the broker representation of a Chunk.
// Published to: grepconsole.output.raw
// Key: {producer}
type RawChunk struct {
	ConsoleID   string `json:"console_id"`
	Producer    string `json:"producer"`
	Text        string `json:"text"`
	ContentType string `json:"content_type"`
	Timestamp   int64  `json:"timestamp"`
}

// MatchedLine is a line forwarded by a grep console.
// Published to: grepconsole.grep.matches
// Key: {console_id}
type MatchedLine struct {
	ConsoleID  string `json:"console_id"`
	Title      string `json:"title"`
	Text       string `json:"text"`
	OutputKind string `json:"output_kind"`
	Timestamp  int64  `json:"timestamp"`
}

// TopicNames used in distributed mode.
const (
	// TopicOutputRaw carries raw console output chunks.
	TopicOutputRaw = "grepconsole.output.raw"

	// TopicGrepMatches carries lines forwarded by grep consoles.
	TopicGrepMatches = "grepconsole.grep.matches"
)
