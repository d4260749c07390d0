/*
go-yolodetect runs single image object detection with YOLOv8 style models.
A Detector owns one loaded Model, prepares images by padding them to a square
and scaling them to the Model input size, hands the input tensor to an
inference Executor and decodes the raw [1, 4+C, A] output tensor into
bounding boxes in the original image coordinates.

Inference itself is provided by an Executor implementation, see the cvdnn
package for OpenCV DNN and the ortexec package for ONNX Runtime.

See example code and usage in the example subdirectory.
*/
package yolodetect
