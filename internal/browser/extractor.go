package browser

import (
	"encoding/json"
	"fmt"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/formbridge/formbridge/internal/domain"
)

// ExtractResult is the raw DOM snapshot of one page: field descriptors
// with every label candidate, buttons with a derived purpose, and any
// wizard step indicators.
type ExtractResult struct {
	Fields         []domain.RawField      `json:"fields"`
	Buttons        []domain.RawButton     `json:"buttons"`
	StepIndicators []domain.StepIndicator `json:"stepIndicators"`
}

// extractScript runs inside the page. It collects every input, select
// and textarea with all label candidates keyed by their resolution
// source; precedence is applied later, outside the page.
const extractScript = `() => {
	const fields = [];
	const buttons = [];

	document.querySelectorAll("input, select, textarea").forEach(el => {
		const id = el.id || "";
		const name = el.name || "";
		const type = el.type || "";
		const tag = el.tagName.toLowerCase();

		const labels = {};
		if (id) {
			const explicit = document.querySelector("label[for='" + CSS.escape(id) + "']");
			if (explicit) labels.explicit = explicit.innerText.trim();
		}
		const fieldset = el.closest("fieldset");
		if (fieldset) {
			const legend = fieldset.querySelector("legend");
			if (legend) labels.heading = legend.innerText.trim();
		}
		const gfield = el.closest(".gfield");
		if (gfield) {
			const gfLabel = gfield.querySelector(".gfield_label");
			if (gfLabel) labels.grouped = gfLabel.innerText.trim();
		}
		const enclosing = el.closest("label");
		if (enclosing) labels.enclosing = enclosing.innerText.trim();
		if (el.previousElementSibling && el.previousElementSibling.tagName === "LABEL") {
			labels.prev_sibling = el.previousElementSibling.innerText.trim();
		}
		if (el.parentElement) {
			const nearby = el.parentElement.querySelector("label");
			if (nearby) labels.nearby = nearby.innerText.trim();
		}

		let options = [];
		if (tag === "select") {
			options = [...el.querySelectorAll("option")].map(opt => opt.innerText.trim());
		}
		if ((type === "checkbox" || type === "radio") && gfield) {
			const choiceLabels = [...gfield.querySelectorAll(".gchoice label")]
				.map(l => l.innerText.trim())
				.filter(Boolean);
			if (choiceLabels.length > 0) options = choiceLabels;
		}

		fields.push({
			tag: tag,
			type: type,
			id: id,
			name: name,
			placeholder: el.placeholder || "",
			labels: labels,
			options: options
		});
	});

	document.querySelectorAll("button, input[type='submit'], input[type='button']").forEach(btn => {
		const value = btn.value || "";
		const text = (btn.textContent || "").trim() || value;
		const textLower = text.toLowerCase();
		const type = btn.type || "";

		let purpose = "unknown";
		if (textLower.includes("next") || textLower.includes("continue") || textLower.includes("proceed")) {
			purpose = "next";
		} else if (textLower.includes("previous") || textLower.includes("back")) {
			purpose = "previous";
		} else if (textLower.includes("submit") || type === "submit") {
			purpose = "submit";
		} else if (textLower.includes("cancel") || textLower.includes("close")) {
			purpose = "cancel";
		} else if (textLower.includes("skip")) {
			purpose = "skip";
		}

		buttons.push({
			buttonType: type,
			purpose: purpose,
			id: btn.id || "",
			name: btn.name || "",
			value: value,
			text: text,
			className: btn.className || "",
			isVisible: btn.offsetParent !== null,
			isDisabled: btn.disabled
		});
	});

	const stepIndicators = [];
	document.querySelectorAll(".step, .steps, .step-indicator, [class*='step'], .progress-step, .wizard-step").forEach(step => {
		const text = (step.textContent || "").trim();
		if (text) {
			stepIndicators.push({
				text: text,
				className: step.className,
				isActive: step.classList.contains("active") ||
					step.classList.contains("current") ||
					step.getAttribute("aria-current") === "true"
			});
		}
	});

	return { fields: fields, buttons: buttons, stepIndicators: stepIndicators };
}`

// Extractor pulls raw descriptors out of a loaded page.
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract evaluates the extraction script on the page and decodes the
// snapshot. The page is not mutated.
func (e *Extractor) Extract(page playwright.Page) (*ExtractResult, error) {
	raw, err := page.Evaluate(extractScript)
	if err != nil {
		return nil, domain.ErrExtractionFailed(page.URL(), fmt.Errorf("evaluating extraction script: %w", err))
	}

	// The in-page result comes back as generic values; round-trip
	// through JSON to land on typed descriptors.
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, domain.ErrExtractionFailed(page.URL(), fmt.Errorf("encoding extraction result: %w", err))
	}

	var result ExtractResult
	if err := json.Unmarshal(encoded, &result); err != nil {
		return nil, domain.ErrExtractionFailed(page.URL(), fmt.Errorf("decoding extraction result: %w", err))
	}

	e.logger.Debug("page extracted",
		zap.String("url", page.URL()),
		zap.Int("fields", len(result.Fields)),
		zap.Int("buttons", len(result.Buttons)),
		zap.Int("step_indicators", len(result.StepIndicators)))

	return &result, nil
}
