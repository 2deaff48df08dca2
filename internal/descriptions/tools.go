package descriptions

// Tool descriptions with practical examples and use cases

const (
	// Document Tools
	PDFLocateTextDescription = `Find every occurrence of a literal string in a PDF and return its rectangles.

**When to use:** Before substituting, to check that a template really contains a placeholder and where it sits on the page.

**Why it's useful:** Shows exactly which page and box a placeholder occupies, so offsets and font sizes can be tuned before a pass.

**Examples:**
• Check a cover template: "Where is { client_name } in offer-cover.pdf?"
• Limit to one page: "Find _Date_ on page 2 of nda.pdf"

**Common workflows:**
1. Template authoring: pdf_locate_text → adjust the template → pdf_locate_text again
2. Debugging a miss: pdf_substitute reports unmatched → pdf_locate_text with each spelling

**Best practices:** Coordinates are points with the origin at the top-left corner of the page and y growing downward.`

	PDFSubstituteDescription = `Replace placeholder text in a PDF template with values and write a new PDF.

**When to use:** Filling a contract, offer letter or proposal cover whose template carries placeholders such as "{ client_name }" or "_Date_".

**Why it's useful:** Each placeholder is removed from the page content (not painted over) and the value is drawn in its place. Case and whitespace variants are tried in order, so "{ CLIENT_NAME }" and "{client_name}" are found too.

**Examples:**
• Offer letter: rules [{"placeholder":"{ client_name }","value":"Jane Doe"}], y_offset 8
• Quick fill: values {"_Date_":"April 14, 2025","_Position_":"an Engineer"}
• Per field nudge: a rule with "x_offset": 20 to move just that value

**Common workflows:**
1. session_open → pdf_substitute (output inside the session) → pdf_merge → pdf_finalize → session_close
2. Single document: pdf_substitute straight to the final output path

**Best practices:** The template is never modified. Placeholders that match nothing on a page are listed in the report as misses and do not fail the call.`

	PDFMergeDescription = `Concatenate PDFs into one document, preserving the order given.

**When to use:** Assembling a proposal from a filled cover, an index and static sections.

**Why it's useful:** Every input is checked before anything is written, so a missing section never yields a half-built document.

**Examples:**
• Proposal: paths ["cover.pdf","index.pdf","terms.pdf"] → proposal.pdf
• Report the page span each input occupies in the result

**Common workflows:**
1. pdf_substitute → pdf_merge → pdf_finalize

**Best practices:** Put the merged draft in a session directory and finalize from there.`

	PDFFinalizeDescription = `Keep only the selected pages of a merged document.

**When to use:** After merging, when an operator has ticked which pages belong in the final document.

**Why it's useful:** Takes one boolean per page and writes the kept pages in their original order.

**Examples:**
• include [true,false,true,true,false] on a 5-page draft keeps pages 1, 3 and 4

**Common workflows:**
1. pdf_page_count → build the inclusion vector → pdf_finalize

**Best practices:** The vector must have exactly one entry per page and select at least one page.`

	PDFPageCountDescription = `Count the pages in a PDF.

**When to use:** Before building an inclusion vector for pdf_finalize, or to check a template has the expected length.

**Examples:**
• "How many pages does merged.pdf have?"`

	// Catalog Tools
	TemplateListDescription = `List section templates registered in the catalog.

**When to use:** Discovering which templates exist for a document type and which fields they expect.

**Why it's useful:** Each entry carries its doc type, page count, visibility, default flag and field definitions.

**Examples:**
• "List offer templates": doc_type "offer"
• "List everything": no arguments`

	TemplateSelectDescription = `Pick the template that will be filled for a document type.

**When to use:** Before generating, to confirm which template the server will use.

**Why it's useful:** Applies the catalog rules: hidden and non-PDF templates are skipped, the default wins, then catalog order.

**Examples:**
• doc_type "offer" → offer-classic (default)
• doc_type "offer", pages 2 → the first two-page offer template
• template_id "offer-modern" → that entry, if it is visible and a PDF`

	DocumentGenerateDescription = `Produce a finished document for a type in one call.

**When to use:** The template catalog describes the fields, and you have values for them.

**Why it's useful:** Selects the template, formats values (amounts, dates, articles), substitutes, appends sections, applies the page selection and delivers the result, cleaning up intermediate files.

**Examples:**
• doc_type "offer", values {"client":"Jane Doe","stipend":"50000","date":"2025-04-14"}, output "out/jane-offer.pdf"
• Add static sections with appendix ["terms.pdf"] and drop pages with include
• template_id "offer-modern" fills that catalog entry instead of the doc type's default

**Best practices:** Use template_list first to see each field's name and kind.`

	// Session Tools
	SessionOpenDescription = `Open a private workspace directory for intermediate files.

**When to use:** Multi-step fills where substituted and merged drafts should not land next to the templates.

**Why it's useful:** Relative paths passed with the session_id are resolved inside the workspace, and the directory is removed on session_close.`

	SessionCloseDescription = `Close a workspace and delete everything in it.

**When to use:** After the final document has been copied out of the session directory.`

	PDFServerInfoDescription = `Get server configuration, available tools and usage guidance.

**When to use:** At the start of a conversation to learn the template directory, font defaults and tools.

**Examples:**
• "What can this server do?"`
)
