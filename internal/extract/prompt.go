package extract

// extractionPrompt is the fixed instruction sent with every document. The
// schema is the contract: a JSON array where amounts are always positive and
// direction travels in the "type" field.
const extractionPrompt = `You are a financial statement parser for bank and credit-card statements.

Task:
- Parse ALL transactions in the attached statement document.
- Output STRICT JSON only (no comments, no trailing commas, no extra text).
- Output a JSON array of objects.

Each object must have these fields:
- "date": string, ISO format "YYYY-MM-DD"
- "description": string
- "amount": number, ALWAYS positive
- "type": string, "INCOME" for money in, "EXPENSE" for money out
- "is_invoice_payment": boolean, true only when the line pays a credit-card bill
- "suggested_card_match": string, lower-case issuer name (e.g. "nubank", "itau") when the line pays a credit-card bill and the issuer is identifiable, else ""

Rules:
- Never emit a negative amount; direction goes in "type".
- Keep descriptions as printed on the statement.
- Skip summary, balance and header lines; only real transactions.
- If the document contains no transactions, output [].

Return ONLY valid raw JSON.
Do NOT wrap the response in code fences.
Do NOT use ` + "```" + `json or any Markdown.
Output must begin with "[" and end with "]".
`
