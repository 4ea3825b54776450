package diagnosis

// seedFindings defines the kidney CT findings the decision procedure
// distinguishes. not_applicable is handled by the modality check and has no
// entry here.
var seedFindings = []Finding{
	{
		Label:    LabelStone,
		Name:     "Kidney stone",
		Evidence: "A hyperdense (very bright white), distinct, well-circumscribed object. A stone is an object, not a tissue mass, and does not significantly disrupt the overall shape of the kidney.",
		Fallback: "The scan shows signs consistent with a kidney stone, a small hard deposit that can form inside the kidney. Many stones are manageable; please review this result with your doctor.",
	},
	{
		Label:    LabelTumor,
		Name:     "Tumor",
		Evidence: "A distinct, focal, solid mass with a tissue density different from the surrounding kidney that clearly disrupts and deforms the smooth, bean-like outline of the kidney. Normal variations such as a dromedary hump or fetal lobulations are not tumors.",
		Fallback: "The scan shows an area that may be a solid growth in the kidney. Not every growth is cancerous, and further tests are usually needed; please review this result with your doctor soon.",
	},
	{
		Label:    LabelCyst,
		Name:     "Cyst",
		Evidence: "A well-defined, round, homogeneous, low-density (dark, fluid-filled) area with a very thin wall and no solid tissue.",
		Fallback: "The scan shows what looks like a cyst, a fluid-filled pocket in the kidney. Simple cysts are common and often harmless; please review this result with your doctor.",
	},
	{
		Label:    LabelNormal,
		Name:     "Normal",
		Evidence: "A smooth, regular, bean-shaped contour and uniform tissue density throughout the cortex. Minor shape variations such as a gentle bulge or slight lobulations are normal.",
		Fallback: "The scan does not show signs of a stone, cyst, or tumor, and the kidney appears normal. If you have symptoms, please still discuss them with your doctor.",
	},
}
