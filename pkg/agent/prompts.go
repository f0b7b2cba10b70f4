package agent

// Prompt templates for the pipeline stages. Each structured prompt instructs
// the model to answer with a single JSON object so the response can be parsed
// with decodeStructured.

const routerPrompt = `You are a request router for a data analysis assistant backed by a PostgreSQL database.

Classify the user's request into exactly one category:
- "DataRequest": the user wants data, numbers, aggregates, listings or trends that require querying the database.
- "InformationalRequest": the user asks about the assistant itself, the available data, table meanings, or anything answerable without running a query.

User request: %s

Respond with JSON only, no other text:
{"classification": "DataRequest" or "InformationalRequest"}`

const normalizePrompt = `You rewrite user questions so a SQL generation step can work with them.

Today's date is %s.

Rewrite the question below so that:
- relative time references ("last month", "this year", "yesterday") become absolute dates,
- pronouns and vague references are resolved from the question itself,
- the intent is preserved exactly. Do not add constraints the user did not state.

Question: %s

Respond with JSON only, no other text:
{"question": "<rewritten question>"}`

const rerankPrompt = `You are ranking cached question/context pairs by how well they match a new question.

New question: %s

Candidates:
%s

Pick the candidates whose cached context would genuinely help answer the new question. Order them from most to least relevant and explain your choice briefly.

Respond with JSON only, no other text:
{"ids": [<candidate ids in relevance order, possibly empty>], "reasoning": "<one or two sentences>"}`

const selectorPrompt = `You select the PostgreSQL tables needed to answer a question.

Question: %s

%s
%s%sRespond with JSON only, no other text:
{"tables": ["<table name>", ...]}`

const contextualizePrompt = `You maintain a working brief of database knowledge for a SQL generation step.

Question: %s

Current brief (may be empty):
%s

New schema evidence:
%s

Write an updated brief with these sections:
Tables
Key Relationships
Relevant Fields
Context

Keep every piece of information from the current brief. Add what the new evidence contributes. Do not drop or contradict anything already in the brief.

Answer with the updated brief only.`

const sufficiencyPrompt = `You judge whether the schema evidence below is enough to write a correct SQL query for the question.

Question: %s

Evidence:
%s

If you are uncertain, lean towards "sufficient"; the query step can work with partial evidence.

Respond with JSON only, no other text:
{"sufficient": true or false, "reason": "<what is missing, if anything>"}`

const generatePrompt = `You write PostgreSQL queries.

Question: %s

Schema evidence:
%s

Rules:
- Output a single SELECT statement. Never write INSERT, UPDATE, DELETE, DROP or any other mutating statement.
- Use only the tables and columns present in the evidence.
- Prefer explicit column lists over SELECT *.

Respond with JSON only, no other text:
{"query": "<the SQL statement>", "reasoning": "<one or two sentences on how the query answers the question>"}`

const generateFromContextPrompt = `You write PostgreSQL queries using previously validated examples.

Question: %s

Validated context from similar past questions:
%s

Rules:
- Output a single SELECT statement. Never write INSERT, UPDATE, DELETE, DROP or any other mutating statement.
- Adapt the patterns from the context; do not invent tables or columns it does not mention.

Respond with JSON only, no other text:
{"query": "<the SQL statement>", "reasoning": "<one or two sentences on how the query answers the question>"}`

const correctionPrompt = `A PostgreSQL query you wrote failed. Fix it.

Question: %s

Schema evidence:
%s

Failed query:
%s

Database error:
%s

Rules:
- Output a single corrected SELECT statement.
- Address the error directly; do not change the query's intent.

Respond with JSON only, no other text:
{"query": "<the corrected SQL statement>", "reasoning": "<what was wrong and what you changed>"}`

const chartClassifyPrompt = `You decide whether a query result should be visualised.

Question: %s

Query result:
%s

Pick one:
- "line": the data is a trend over an ordered axis (time, sequence).
- "bar": the data compares amounts across categories.
- "none": a chart adds nothing (single value, raw listing, error, empty result).

Respond with JSON only, no other text:
{"type": "line" or "bar" or "none"}`

const chartSeriesPrompt = `Extract one plottable series from the query result below.

Question: %s

Query result:
%s

Respond with JSON only, no other text:
{"title": "<chart title>", "x_label": "<x axis label>", "y_label": "<y axis label>", "labels": ["<category or tick label>", ...], "values": [<number>, ...]}

labels and values must have the same length.`

const informationalPrompt = `You are a data analysis assistant for a PostgreSQL database.

The database contains:
%s
%s
Answer the user's question about the assistant or the available data. Be concise. Do not invent tables that are not listed.

Question: %s`

const decomposePrompt = `You split a data question into independent sub-questions when that makes the SQL simpler.

Question: %s

If the question asks for several unrelated measures, split it into one sub-question per measure. If it is a single coherent request, return it unchanged as the only element.

Respond with JSON only, no other text:
{"subquestions": ["<sub-question>", ...]}`

const reducePrompt = `Combine the SQL statements below into one PostgreSQL statement answering the original question.

Question: %s

Statements:
%s

Rules:
- Output a single SELECT statement, typically combining the inputs with CTEs or subqueries.
- Preserve the semantics of every input statement.

Respond with JSON only, no other text:
{"query": "<the combined SQL statement>", "reasoning": "<one sentence>"}`
