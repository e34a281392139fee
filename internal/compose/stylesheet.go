package compose

// Page geometry shared with the renderer. Units are inches.
const (
	PageWidthIn    = 8.5
	PageHeightIn   = 11.0
	MarginTopIn    = 0.75
	MarginRightIn  = 0.625
	MarginBottomIn = 0.625
	MarginLeftIn   = 0.625
)

// stylesheet lays the document out on US Letter in two columns. Title,
// author, abstract, keyword and reference blocks span both columns.
const stylesheet = `
@page {
  size: letter;
  margin: 0.75in 0.625in 0.625in 0.625in;
}
body {
  font-family: Times, "Times New Roman", serif;
  font-size: 10pt;
  line-height: 1.15;
  margin: 0;
  padding: 0;
  column-count: 2;
  column-gap: 0.25in;
  text-align: justify;
}
.paper-title {
  font-size: 24pt;
  font-weight: bold;
  text-align: center;
  margin-bottom: 0.2in;
  column-span: all;
}
.author-block {
  text-align: center;
  margin-bottom: 0.2in;
  column-span: all;
}
.author-names {
  font-weight: bold;
  margin-bottom: 0.05in;
}
.author-affiliations-center {
  width: 100%;
  text-align: center;
  margin: 0.1in auto;
}
.affiliation-item {
  margin-bottom: 0.02in;
}
.author-emails {
  font-style: italic;
  margin-bottom: 0.05in;
}
.corresponding-note {
  font-size: 9pt;
  margin-bottom: 0.1in;
}
.abstract-container {
  column-span: all;
  margin-bottom: 0.2in;
}
.abstract-title {
  font-weight: bold;
  text-align: center;
  margin-bottom: 0.1in;
}
.abstract {
  font-style: italic;
}
.keywords {
  font-style: italic;
  margin-bottom: 0.2in;
  column-span: all;
}
h1 {
  font-family: Times, "Times New Roman", serif;
  font-size: 12pt;
  font-weight: bold;
  margin-top: 0.1in;
  margin-bottom: 0.1in;
}
.section {
  margin-bottom: 0.1in;
  break-inside: avoid;
}
.image-container {
  width: 100%;
  text-align: center;
  margin: 0.1in 0;
  break-inside: avoid;
}
.image {
  max-width: 100%;
  max-height: 2.5in;
}
.image-caption {
  font-style: italic;
  font-size: 9pt;
  margin-top: 0.05in;
  text-align: center;
}
.page-break {
  page-break-before: always;
  column-span: all;
}
.ref-list {
  column-span: all;
  margin-top: 0.2in;
}
.ref-title {
  font-weight: bold;
  text-align: center;
  margin-bottom: 0.1in;
}
.ref-item {
  text-indent: -0.25in;
  padding-left: 0.25in;
  margin-bottom: 0.1in;
}
p {
  margin: 0.05in 0;
}
sup {
  font-size: 8pt;
  vertical-align: super;
}
`
