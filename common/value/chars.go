package value

// Text-form punctuation. The bracket vocabulary and lead characters are part
// of the wire contract and never change.
const (
	startArrayChar   = '('
	endArrayChar     = ')'
	startMapChar     = '{'
	endMapChar       = '}'
	startSetChar     = '['
	endSetChar       = ']'
	blobChar         = '%'
	addressChar      = '@'
	dateTimeLeadChar = '!'
	dateSecondChar   = 'D'
	timeSecondChar   = 'T'
	escapeChar       = '\\'
)

// keyValueSeparator sits between a key and its value in the text form of a
// Map.
const keyValueSeparator = "->"
