package catalog

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"chatorder-backend/logic"
	"chatorder-backend/models"
)

// ParseYAML 解析 分类 -> 子分类 -> 商品名 -> 属性 的嵌套目录，文档顺序即目录顺序。
// 结构不对的条目记日志后跳过，只有整个文档无法解析才返回错误。
func ParseYAML(data []byte) ([]models.Product, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("解析目录文件失败: %w", err)
	}
	if len(doc.Content) == 0 {
		return []models.Product{}, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("目录顶层必须是分类映射")
	}

	products := []models.Product{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		category, subs := root.Content[i].Value, root.Content[i+1]
		if subs.Kind != yaml.MappingNode {
			logrus.WithField("category", category).Warn("⚠️ 分类下不是子分类映射，已跳过")
			continue
		}
		for j := 0; j+1 < len(subs.Content); j += 2 {
			subcategory, items := subs.Content[j].Value, subs.Content[j+1]
			if items.Kind != yaml.MappingNode {
				logrus.WithFields(logrus.Fields{"category": category, "subcategory": subcategory}).Warn("⚠️ 子分类下不是商品映射，已跳过")
				continue
			}
			for k := 0; k+1 < len(items.Content); k += 2 {
				name := items.Content[k].Value
				var attrs models.ProductAttributes
				if err := items.Content[k+1].Decode(&attrs); err != nil {
					logrus.WithError(err).WithField("product", name).Warn("⚠️ 商品属性无法解析，已跳过")
					continue
				}
				products = append(products, fromAttributes(category, subcategory, name, attrs, len(products)))
			}
		}
	}
	return products, nil
}

func fromAttributes(category, subcategory, name string, a models.ProductAttributes, pos int) models.Product {
	inStock := true
	if a.InStock != nil {
		inStock = *a.InStock
	}
	return models.Product{
		ID:          logic.ProductID(category, subcategory, name),
		Category:    category,
		Subcategory: subcategory,
		Name:        name,
		Price:       a.Price,
		PriceFrom:   a.PriceFrom,
		InStock:     inStock,
		Barcode:     a.Barcode,
		Images:      a.Images,
		Position:    pos,
	}
}
