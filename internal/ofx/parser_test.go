package ofx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Sample OFX data for testing.
const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-25.50
<FITID>2024011501
<NAME>STARBUCKS STORE #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>PAYMENT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>-125.00
<FITID>2024012001
<NAME>AMAZON MKTP
<MEMO>ORDER 114-2278
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func TestParseFile_BankStatement(t *testing.T) {
	parser := NewParser()

	txns, err := parser.ParseFile(strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	require.Len(t, txns, 2)

	assert.Equal(t, "STARBUCKS STORE #1234", txns[0].Description)
	assert.Equal(t, "DEBIT", txns[0].Category)

	// MEMO detail is appended when the name lacks it.
	assert.Equal(t, "AMAZON MKTP ORDER 114-2278", txns[1].Description)
	assert.Equal(t, "PAYMENT", txns[1].Category)
}

func TestParseFile_LeadingWhitespaceTolerated(t *testing.T) {
	parser := NewParser()

	txns, err := parser.ParseFile(strings.NewReader("\n\n  " + sampleBankOFX))
	require.NoError(t, err)
	assert.Len(t, txns, 2)
}

func TestParseFile_GarbageInput(t *testing.T) {
	parser := NewParser()

	_, err := parser.ParseFile(strings.NewReader("not an ofx file"))
	require.Error(t, err)
}

func TestPreprocessOFX_FixesSeverityCase(t *testing.T) {
	parser := NewParser()

	fixed := parser.preprocessOFX("<SEVERITY>Info</SEVERITY>")
	assert.Equal(t, "<SEVERITY>INFO</SEVERITY>", fixed)
}
