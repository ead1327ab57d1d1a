package analyzer

import (
	"strings"

	"github.com/tsgonest/tsoapi/internal/metadata"
)

// classJSDocInfo holds JSDoc metadata extracted from a controller class.
type classJSDocInfo struct {
	// Hidden is true when the controller should be left out of the document.
	Hidden bool
	// Description is the JSDoc body, overridden by an explicit @description tag.
	Description string
}

// extractClassJSDoc reads controller-level JSDoc.
// Recognized annotations:
//   - @hidden / @exclude: skip the controller
//   - @description <text>: tag description
func extractClassJSDoc(doc metadata.JSDoc) classJSDocInfo {
	info := classJSDocInfo{Description: strings.TrimSpace(doc.Comment)}
	for _, tag := range doc.Tags {
		switch strings.ToLower(tag.Name) {
		case "hidden", "exclude":
			info.Hidden = true
		case "description":
			info.Description = strings.TrimSpace(tag.Text)
		}
	}
	return info
}

// methodJSDocInfo holds JSDoc metadata extracted from a route handler.
type methodJSDocInfo struct {
	Summary     string
	Description string
	Deprecated  bool
	Hidden      bool
}

// extractMethodJSDoc reads method-level JSDoc. The body becomes the operation
// summary unless a @summary tag is present.
func extractMethodJSDoc(doc metadata.JSDoc) methodJSDocInfo {
	info := methodJSDocInfo{Summary: strings.TrimSpace(doc.Comment)}
	for _, tag := range doc.Tags {
		switch strings.ToLower(tag.Name) {
		case "summary":
			info.Summary = strings.TrimSpace(tag.Text)
		case "description":
			info.Description = strings.TrimSpace(tag.Text)
		case "deprecated":
			info.Deprecated = true
		case "hidden", "exclude":
			info.Hidden = true
		}
	}
	return info
}
