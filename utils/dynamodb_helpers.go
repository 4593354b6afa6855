package utils

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ExtractString safely extracts a string from a DynamoDB attribute map
func ExtractString(item map[string]types.AttributeValue, field string) string {
	if attr, ok := item[field]; ok {
		if v, ok := attr.(*types.AttributeValueMemberS); ok {
			return v.Value
		}
	}
	return ""
}

// ExtractStrings collects field from every item, skipping items where it is
// missing or not a string.
func ExtractStrings(items []map[string]types.AttributeValue, field string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if v := ExtractString(item, field); v != "" {
			out = append(out, v)
		}
	}
	return out
}
