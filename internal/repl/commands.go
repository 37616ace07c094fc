package repl

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

type CommandKind int

const (
	// CmdMessage: texto comum, enviado como mensagem.
	CmdMessage CommandKind = iota
	// CmdContinue: entrada vazia, envia o próximo chunk.
	CmdContinue
	CmdQuit
	CmdInfo
	CmdHistory
	CmdClear
	CmdPop
	CmdGoto
	CmdReset
	CmdChunk
	CmdPrompt
	CmdOpen
	CmdSearch
	CmdRead
	CmdHelp
)

// Command é uma linha de entrada já classificada.
type Command struct {
	Kind CommandKind
	// N para .goto e .chunk.
	N int
	// Arg para .prompt, .search, .read e para mensagens.
	Arg string
}

var (
	gotoRe   = regexp.MustCompile(`^\.(?:goto|g)\s+(-?\d+)$`)
	chunkRe  = regexp.MustCompile(`^\.(?:chunk|c)(?:=|\s+)(-?\d+)$`)
	promptRe = regexp.MustCompile(`(?s)^\.(?:prompt|p)(?:=|\s)(.+)$`)
	searchRe = regexp.MustCompile(`(?s)^\.(?:search|s)\s+(.+)$`)
	readRe   = regexp.MustCompile(`^\.(?:read|r)\s+(.+)$`)
)

var literals = map[string]CommandKind{
	".q":       CmdQuit,
	".quit":    CmdQuit,
	".i":       CmdInfo,
	".info":    CmdInfo,
	".h":       CmdHistory,
	".history": CmdHistory,
	".clear":   CmdClear,
	".pop":     CmdPop,
	".g":       CmdReset,
	".goto":    CmdReset,
	".reset":   CmdReset,
	".o":       CmdOpen,
	".open":    CmdOpen,
	".help":    CmdHelp,
	".?":       CmdHelp,
}

// Parse classifica uma linha de entrada já sem espaços nas pontas.
func Parse(input string) Command {
	if input == "" {
		return Command{Kind: CmdContinue}
	}
	if kind, ok := literals[input]; ok {
		return Command{Kind: kind}
	}
	if m := gotoRe.FindStringSubmatch(input); m != nil {
		return Command{Kind: CmdGoto, N: clampAtoi(m[1])}
	}
	if m := chunkRe.FindStringSubmatch(input); m != nil {
		return Command{Kind: CmdChunk, N: clampAtoi(m[1])}
	}
	if m := promptRe.FindStringSubmatch(input); m != nil {
		return Command{Kind: CmdPrompt, Arg: m[1]}
	}
	if m := searchRe.FindStringSubmatch(input); m != nil {
		return Command{Kind: CmdSearch, Arg: strings.TrimSpace(m[1])}
	}
	if m := readRe.FindStringSubmatch(input); m != nil {
		return Command{Kind: CmdRead, Arg: strings.TrimSpace(m[1])}
	}
	return Command{Kind: CmdMessage, Arg: input}
}

// clampAtoi converte s, que já casou com -?\d+; fora da faixa de int vira
// math.MaxInt ou math.MinInt.
func clampAtoi(s string) int {
	n, err := strconv.Atoi(s)
	if errors.Is(err, strconv.ErrRange) {
		if strings.HasPrefix(s, "-") {
			return math.MinInt
		}
		return math.MaxInt
	}
	return n
}

const helpText = `Commands:
  <Enter>              send the next chunk of the loaded text
  .q | .quit           quit
  .i | .info           show session info
  .h | .history        show conversation history
  .clear               clear conversation history
  .pop                 drop the oldest history turn
  .g | .goto [N]       jump to offset N (start when omitted)
  .reset               jump to the start
  .c | .chunk N        set chunk size (minimum 1)
  .p | .prompt TEXT    set the prompt appended to each chunk
  .o | .open           open the source URL in a browser
  .s | .search TEXT    search the web and read a result
  .r | .read PATH      read another file or URL into the session
  .help                show this help
A line ending in \ continues on the next line.
`
