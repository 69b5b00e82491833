package importer

import (
	"bytes"
	"fmt"
	"io"
	"iter"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"

	"budgeteer/internal/core"
)

var (
	severityRe = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)`)
	// SGML exports sometimes drop the closing bracket of a bare tag line
	openTagRe = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])\r?$`)
)

// ReadOFX reads bank and credit card transactions from an OFX or QFX
// statement. The whole file is parsed before the first row is produced.
func ReadOFX(r io.Reader) iter.Seq2[core.RawRow, error] {
	return func(yield func(core.RawRow, error) bool) {
		content, err := io.ReadAll(r)
		if err != nil {
			yield(core.RawRow{}, &core.ParseError{Err: fmt.Errorf("read statement: %w", err)})
			return
		}
		resp, err := ofxgo.ParseResponse(bytes.NewReader(preprocessOFX(content)))
		if err != nil {
			yield(core.RawRow{}, &core.ParseError{Err: err})
			return
		}

		for _, msg := range resp.Bank {
			if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
				for _, tx := range stmt.BankTranList.Transactions {
					if !yield(ofxRow(tx), nil) {
						return
					}
				}
			}
		}
		for _, msg := range resp.CreditCard {
			if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
				for _, tx := range stmt.BankTranList.Transactions {
					if !yield(ofxRow(tx), nil) {
						return
					}
				}
			}
		}
	}
}

func ofxRow(tx ofxgo.Transaction) core.RawRow {
	desc := strings.TrimSpace(string(tx.Name))
	if desc == "" && tx.Payee != nil {
		desc = strings.TrimSpace(string(tx.Payee.Name))
	}
	return core.RawRow{
		Date:           tx.DtPosted.Format(core.DateLayout),
		Description:    desc,
		SubDescription: strings.TrimSpace(string(tx.Memo)),
		Amount:         tx.TrnAmt.FloatString(2),
	}
}

func preprocessOFX(content []byte) []byte {
	s := strings.TrimLeft(string(content), " \t\r\n\ufeff")
	s = severityRe.ReplaceAllStringFunc(s, strings.ToUpper)
	s = openTagRe.ReplaceAllString(s, "$1>")
	return []byte(s)
}
