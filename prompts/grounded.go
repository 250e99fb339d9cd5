package prompts

const (
	// ContextVar and QuestionVar are the placeholders of the grounded QA template.
	ContextVar  = "contexto"
	QuestionVar = "pergunta"

	// DefaultRefusal is returned by the model when the context lacks the answer.
	DefaultRefusal = "Não tenho informações necessárias para responder sua pergunta."

	refusalVar = "recusa"
)

var groundedQATemplate = NewPromptTemplate(`
CONTEXTO:
{{.contexto}}

REGRAS:
- Responda somente com base no CONTEXTO.
- Se a informação não estiver explicitamente no CONTEXTO, responda:
  "{{.recusa}}"
- Nunca invente ou use conhecimento externo.
- Nunca produza opiniões ou interpretações além do que está escrito.

EXEMPLOS DE PERGUNTAS FORA DO CONTEXTO:
Pergunta: "Qual é a capital da França?"
Resposta: "{{.recusa}}"

Pergunta: "Quantos clientes temos em 2024?"
Resposta: "{{.recusa}}"

Pergunta: "Você acha isso bom ou ruim?"
Resposta: "{{.recusa}}"

PERGUNTA DO USUÁRIO:
{{.pergunta}}

RESPONDA A "PERGUNTA DO USUÁRIO"
`)

// DefaultGroundedQAPrompt answers only from the supplied context and refuses
// with DefaultRefusal otherwise.
var DefaultGroundedQAPrompt = NewGroundedQAPrompt(DefaultRefusal)

// NewGroundedQAPrompt returns the grounded QA template with the refusal
// sentence baked into its rules and worked examples. The result binds
// exactly ContextVar and QuestionVar.
func NewGroundedQAPrompt(refusal string) PromptTemplate {
	return groundedQATemplate.Partial(map[string]string{refusalVar: refusal})
}
