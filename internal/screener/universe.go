package screener

// Stock is one universe member with its static display metadata.
type Stock struct {
    Symbol string `json:"symbol"`
    Name   string `json:"name"`
    Sector string `json:"sector"`
}

// DefaultUniverse is a curated large-cap list standing in for a full index
// feed. In production this would come from a constituents API.
var DefaultUniverse = []Stock{
    {"AAPL", "Apple Inc.", "Technology"},
    {"MSFT", "Microsoft Corporation", "Technology"},
    {"GOOGL", "Alphabet Inc.", "Technology"},
    {"AMZN", "Amazon.com Inc.", "Consumer Discretionary"},
    {"NVDA", "NVIDIA Corporation", "Technology"},
    {"TSLA", "Tesla Inc.", "Consumer Discretionary"},
    {"META", "Meta Platforms Inc.", "Technology"},
    {"BRK.B", "Berkshire Hathaway Inc.", "Financials"},
    {"UNH", "UnitedHealth Group Inc.", "Healthcare"},
    {"JNJ", "Johnson & Johnson", "Healthcare"},
    {"JPM", "JPMorgan Chase & Co.", "Financials"},
    {"V", "Visa Inc.", "Financials"},
    {"PG", "Procter & Gamble Co.", "Consumer Staples"},
    {"HD", "The Home Depot Inc.", "Consumer Discretionary"},
    {"MA", "Mastercard Inc.", "Financials"},
    {"DIS", "The Walt Disney Co.", "Communication Services"},
    {"PYPL", "PayPal Holdings Inc.", "Financials"},
    {"NFLX", "Netflix Inc.", "Communication Services"},
    {"CRM", "Salesforce Inc.", "Technology"},
    {"ADBE", "Adobe Inc.", "Technology"},
    {"NKE", "Nike Inc.", "Consumer Discretionary"},
    {"KO", "The Coca-Cola Co.", "Consumer Staples"},
    {"PEP", "PepsiCo Inc.", "Consumer Staples"},
    {"ABT", "Abbott Laboratories", "Healthcare"},
    {"TMO", "Thermo Fisher Scientific Inc.", "Healthcare"},
    {"AVGO", "Broadcom Inc.", "Technology"},
    {"COST", "Costco Wholesale Corporation", "Consumer Staples"},
    {"WMT", "Walmart Inc.", "Consumer Staples"},
    {"MRK", "Merck & Co. Inc.", "Healthcare"},
    {"ACN", "Accenture plc", "Technology"},
    {"LLY", "Eli Lilly and Company", "Healthcare"},
    {"DHR", "Danaher Corporation", "Healthcare"},
    {"TXN", "Texas Instruments Inc.", "Technology"},
    {"QCOM", "QUALCOMM Inc.", "Technology"},
    {"HON", "Honeywell International Inc.", "Industrials"},
    {"UNP", "Union Pacific Corporation", "Industrials"},
    {"RTX", "Raytheon Technologies Corporation", "Industrials"},
    {"LOW", "Lowe's Companies Inc.", "Consumer Discretionary"},
    {"SPGI", "S&P Global Inc.", "Financials"},
    {"ISRG", "Intuitive Surgical Inc.", "Healthcare"},
    {"GILD", "Gilead Sciences Inc.", "Healthcare"},
    {"ADI", "Analog Devices Inc.", "Technology"},
    {"VRTX", "Vertex Pharmaceuticals Inc.", "Healthcare"},
    {"REGN", "Regeneron Pharmaceuticals Inc.", "Healthcare"},
    {"KLAC", "KLA Corporation", "Technology"},
    {"PANW", "Palo Alto Networks Inc.", "Technology"},
    {"SNPS", "Synopsys Inc.", "Technology"},
    {"CDNS", "Cadence Design Systems Inc.", "Technology"},
    {"MELI", "MercadoLibre Inc.", "Consumer Discretionary"},
    {"FTNT", "Fortinet Inc.", "Technology"},
    {"OKTA", "Okta Inc.", "Technology"},
    {"ZS", "Zscaler Inc.", "Technology"},
    {"CRWD", "CrowdStrike Holdings Inc.", "Technology"},
    {"NET", "Cloudflare Inc.", "Technology"},
    {"PLTR", "Palantir Technologies Inc.", "Technology"},
}
