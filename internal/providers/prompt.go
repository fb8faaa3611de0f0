package providers

// AnalysisPrompt asks for exactly the BlueprintAnalysis fields.
const AnalysisPrompt = "Analyze this architectural blueprint image and extract the following information in detail. " +
	"Return a JSON object with keys: total_sqft (number), floors (number), foundation_type (string), roof_type (string), roof_pitch (string), " +
	"rooms (array of { name, length, width, sqft, flooring_type }), structural_elements (array of { type, description, quantity }), " +
	"windows (number), doors (number), garage_bays (number), special_features (array of string), exterior_walls_linear_ft (number), interior_walls_linear_ft (number). " +
	"If unsure, estimate conservatively."

const rawJSONInstruction = "Output ONLY raw JSON without markdown formatting."

const analysisSystemPrompt = "You are a precise blueprint analysis assistant. Output ONLY valid JSON matching the requested fields. Do not include markdown formatting."

const generationSystemPrompt = "You are a construction cost estimator. Output ONLY valid JSON matching the requested structure. Do not include markdown formatting."
