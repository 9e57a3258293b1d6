package protocol

// Version is the protocol version both sides currently speak. The server
// ignores the version the client claims and always replies with its own;
// the client is the side that enforces equality.
const Version = "1.0"

// HeaderLen is the size of the big-endian length header that precedes
// every record payload.
const HeaderLen = 4

// Handshake and control verbs.
const (
	VerbHello    = "HELLO"
	VerbIdentify = "IDENTIFY"
	VerbLog      = "LOG"
	VerbFormat   = "FORMAT"
	VerbQuit     = "QUIT"

	// ReplyOK acknowledges IDENTIFY, LOG, and FORMAT.
	ReplyOK = "OK\n"
)

// LevelKey is the reserved IDENTIFY key carrying the sink's minimum log
// level. Every other IDENTIFY key is passed through to the sink
// constructor untouched.
const LevelKey = "level"

// Default byte limits. MaxLineLen bounds a single handshake line;
// MaxRecordLen guards the 4-byte length header against absurd
// allocations.
const (
	MaxLineLen   = 10240
	MaxRecordLen = 16 << 20
)
