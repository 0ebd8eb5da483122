package lang

import (
	"github.com/smacker/go-tree-sitter/python"
)

func init() {
	registerGrammar(&Grammar{
		Name: Python,
		lang: python.GetLanguage(),
	})
}
