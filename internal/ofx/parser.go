// Package ofx parses OFX/QFX bank exports into classification inputs so a
// whole statement can be batch-classified directly.
package ofx

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"

	"github.com/ledger-tools/ledgersort/internal/model"
)

// Parser implements OFX/QFX file parsing.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	// Trim any leading whitespace or blank lines before the header
	content = strings.TrimLeft(content, " \t\r\n")

	// Fix mixed-case SEVERITY values (should be INFO, WARN, or ERROR)
	severityRegex := regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// Fix missing closing angle brackets in SGML-style OFX files
	tagFixRegex := regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	content = tagFixRegex.ReplaceAllString(content, "$1>")

	return content
}

// ParseFile parses an OFX/QFX export and returns one classification input
// per statement transaction: the payee or name text as the description, the
// OFX transaction type (DEBIT, PAYMENT, ATM, ...) as the category code.
func (p *Parser) ParseFile(reader io.Reader) ([]model.Transaction, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	processedContent := p.preprocessOFX(string(content))

	resp, err := ofxgo.ParseResponse(strings.NewReader(processedContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var transactions []model.Transaction
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			transactions = append(transactions, p.processStatement(stmt.BankTranList)...)
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			transactions = append(transactions, p.processStatement(stmt.BankTranList)...)
		}
	}

	slog.Info("Parsed OFX file",
		"total_transactions", len(transactions),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return transactions, nil
}

func (p *Parser) processStatement(list *ofxgo.TransactionList) []model.Transaction {
	if list == nil {
		return nil
	}

	transactions := make([]model.Transaction, 0, len(list.Transactions))
	for _, ofxTx := range list.Transactions {
		transactions = append(transactions, model.Transaction{
			Description: extractDescription(ofxTx),
			Category:    fmt.Sprintf("%v", ofxTx.TrnType),
		})
	}
	return transactions
}

// extractDescription picks the most informative text field for keyword
// matching: PAYEE when present, otherwise NAME, with MEMO appended when it
// carries detail the name lacks.
func extractDescription(tx ofxgo.Transaction) string {
	name := string(tx.Name)
	if tx.Payee != nil && tx.Payee.Name != "" {
		name = string(tx.Payee.Name)
	}
	name = strings.TrimSpace(name)

	memo := strings.TrimSpace(string(tx.Memo))
	if memo != "" && !strings.Contains(strings.ToUpper(name), strings.ToUpper(memo)) {
		if name == "" {
			return memo
		}
		return name + " " + memo
	}
	return name
}
