// Package extract turns fetched HTML into page metadata and normalized
// content.
//
// Parse decodes the body to UTF-8 and builds a goquery document. An
// Extractor then reads the title and description through fallback chains,
// isolates the primary content region with an ordered list of strategies,
// and converts it with a Converter (markdown or plain text). Every output
// string passes through NormalizeText, so identical markup always yields
// byte-identical output regardless of which strategy matched.
//
//	doc, err := extract.Parse(resp.Body, resp.ContentType)
//	if err != nil {
//		return err
//	}
//	page, err := extract.NewExtractor().Extract(doc)
package extract
