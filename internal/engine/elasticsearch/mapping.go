package elasticsearch

// DefaultAlias is the default live alias for product search documents.
const DefaultAlias = "sedori_products"

// buildIndexMapping returns the full JSON mapping applied to every generation,
// including the edge-ngram autocomplete analyzer used by suggestions.
func buildIndexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "analyzer": {
        "autocomplete_analyzer": {
          "type": "custom",
          "tokenizer": "autocomplete_tokenizer",
          "filter": ["lowercase"]
        },
        "autocomplete_search": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase"]
        }
      },
      "tokenizer": {
        "autocomplete_tokenizer": {
          "type": "edge_ngram",
          "min_gram": 2,
          "max_gram": 20,
          "token_chars": ["letter", "digit"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "id":                { "type": "keyword" },
      "name":              { "type": "text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 }, "autocomplete": { "type": "text", "analyzer": "autocomplete_analyzer", "search_analyzer": "autocomplete_search" } } },
      "description":       { "type": "text" },
      "sku":               { "type": "keyword" },
      "brand":             { "type": "keyword" },
      "model":             { "type": "keyword" },
      "category_id":       { "type": "keyword" },
      "category_name":     { "type": "text", "fields": { "keyword": { "type": "keyword" } } },
      "effective_price":   { "type": "long" },
      "wholesale_price":   { "type": "long" },
      "retail_price":      { "type": "long" },
      "market_price":      { "type": "long" },
      "currency":          { "type": "keyword" },
      "condition":         { "type": "keyword" },
      "status":            { "type": "keyword" },
      "stock_quantity":    { "type": "integer" },
      "in_stock":          { "type": "boolean" },
      "primary_image_url": { "type": "keyword", "index": false },
      "specifications":    { "type": "object", "enabled": false },
      "tags":              { "type": "keyword" },
      "view_count":        { "type": "long" },
      "average_rating":    { "type": "float" },
      "review_count":      { "type": "integer" },
      "searchable_text":   { "type": "text" },
      "source_version":    { "type": "long" },
      "created_at":        { "type": "date" },
      "updated_at":        { "type": "date" }
    }
  }
}`
}
