package ports

import "github.com/veridian-labs/walletgate/core"

// Tokenizer converts issued sessions to and from bearer tokens.
type Tokenizer interface {
	SessionToToken(session *core.Session, did string) (string, error)
	TokenToSession(token string) (*core.Session, string, error)
}
